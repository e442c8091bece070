package library

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"comicshelf/internal/auth"
	"comicshelf/internal/sync"
	"comicshelf/pkg/api"
	"comicshelf/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *sync.Hub
}

func NewHandler(repo *Repo, hub *sync.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library", h.library)
	rg.PUT("/progress", h.upsert)
	rg.GET("/progress/:comic_id", h.getOne)
	rg.DELETE("/progress/:comic_id", h.remove)
	rg.GET("/history", h.history)
}

type progressReq struct {
	ComicID    string `json:"comic_id"`
	ChapterID  string `json:"chapter_id"`
	PageNumber int    `json:"page_number"`
	ClientTS   int64  `json:"client_ts"`
}

func (h *Handler) upsert(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		api.Unauthorized(c, "unauthorized")
		return
	}

	var req progressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid json")
		return
	}

	req.ComicID = strings.TrimSpace(req.ComicID)
	if req.ComicID == "" {
		api.BadRequest(c, "comic_id required")
		return
	}
	if req.PageNumber < 1 {
		api.BadRequest(c, "page_number must be >= 1")
		return
	}
	if req.ClientTS <= 0 {
		// non-reader clients may omit it; treat the write as happening now
		req.ClientTS = time.Now().UnixMilli()
	}

	exists, err := h.Repo.ComicExists(c.Request.Context(), req.ComicID)
	if err != nil {
		api.Internal(c, "lookup failed")
		return
	}
	if !exists {
		api.NotFound(c, "comic not found")
		return
	}

	p := models.ReadingProgress{
		UserID:     claims.UserID,
		ComicID:    req.ComicID,
		ChapterID:  strings.TrimSpace(req.ChapterID),
		PageNumber: req.PageNumber,
		ClientTS:   req.ClientTS,
	}
	applied, err := h.Repo.Upsert(c.Request.Context(), p)
	if err != nil {
		api.Internal(c, "save failed")
		return
	}

	// Return the canonical stored row. When the guard dropped a stale write
	// this is the newer row that beat it.
	saved, err := h.Repo.Get(c.Request.Context(), claims.UserID, req.ComicID)
	if err != nil || saved == nil {
		api.Internal(c, "fetch saved failed")
		return
	}

	if applied && h.Hub != nil {
		ev := sync.ProgressEvent{
			Type:       "progress.update",
			UserID:     saved.UserID,
			ComicID:    saved.ComicID,
			ChapterID:  saved.ChapterID,
			PageNumber: saved.PageNumber,
			ClientTS:   saved.ClientTS,
			At:         time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	api.OK(c, saved)
}

func (h *Handler) library(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		api.Unauthorized(c, "unauthorized")
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	entries, total, err := h.Repo.Library(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		api.Internal(c, "list failed")
		return
	}
	api.List(c, entries, total)
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		api.Unauthorized(c, "unauthorized")
		return
	}

	comicID := strings.TrimSpace(c.Param("comic_id"))
	if comicID == "" {
		api.BadRequest(c, "comic_id required")
		return
	}

	p, err := h.Repo.Get(c.Request.Context(), claims.UserID, comicID)
	if err != nil {
		api.Internal(c, "get failed")
		return
	}
	if p == nil {
		api.NotFound(c, "no progress for comic")
		return
	}
	api.OK(c, p)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		api.Unauthorized(c, "unauthorized")
		return
	}

	comicID := strings.TrimSpace(c.Param("comic_id"))
	if comicID == "" {
		api.BadRequest(c, "comic_id required")
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), claims.UserID, comicID)
	if err != nil {
		api.Internal(c, "delete failed")
		return
	}
	if !ok {
		api.NotFound(c, "no progress for comic")
		return
	}

	if h.Hub != nil {
		ev := sync.ProgressEvent{
			Type:    "progress.delete",
			UserID:  claims.UserID,
			ComicID: comicID,
			At:      time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	api.OK(c, gin.H{"status": "deleted"})
}

func (h *Handler) history(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		api.Unauthorized(c, "unauthorized")
		return
	}

	comicID := strings.TrimSpace(c.Query("comic_id"))
	limit := parseInt(c.Query("limit"), 50)

	entries, err := h.Repo.History(c.Request.Context(), claims.UserID, comicID, limit)
	if err != nil {
		api.Internal(c, "history failed")
		return
	}
	api.List(c, entries, len(entries))
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
