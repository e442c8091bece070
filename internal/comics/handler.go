package comics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"comicshelf/internal/notify"
	"comicshelf/internal/sync"
	"comicshelf/pkg/api"
	"comicshelf/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Hub    *sync.Hub      // nil disables broadcasting
	Notify *notify.Server // nil disables UDP announcements
}

func NewHandler(repo *Repo, hub *sync.Hub, notifier *notify.Server) *Handler {
	return &Handler{Repo: repo, Hub: hub, Notify: notifier}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)         // GET /comics
	rg.POST("", h.create)      // POST /comics
	rg.GET("/:id", h.get)      // GET /comics/:id
	rg.PUT("/:id", h.update)   // PUT /comics/:id
	rg.DELETE("/:id", h.remove)
	rg.POST("/:id/chapters", h.createChapter)
}

// RegisterChapterRoutes wires the endpoints that key on chapter id.
func (h *Handler) RegisterChapterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/pages", h.pages)
	rg.POST("/:id/pages", h.replacePages)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Search: c.Query("search"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		api.Internal(c, "count failed")
		return
	}
	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		api.Internal(c, "list failed")
		return
	}
	api.List(c, items, total)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")

	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		api.Internal(c, "get failed")
		return
	}
	if m == nil {
		api.NotFound(c, "comic not found")
		return
	}

	chapters, err := h.Repo.Chapters(c.Request.Context(), id)
	if err != nil {
		api.Internal(c, "chapters failed")
		return
	}
	reviewCount, avgRating, err := h.Repo.ReviewSummary(c.Request.Context(), id)
	if err != nil {
		api.Internal(c, "review summary failed")
		return
	}

	api.OK(c, models.ComicDetail{
		Comic:         *m,
		Chapters:      chapters,
		ReviewCount:   reviewCount,
		AverageRating: avgRating,
	})
}

type comicReq struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url"`
	Status      string `json:"status"`
}

func (h *Handler) create(c *gin.Context) {
	var req comicReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid json")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		api.BadRequest(c, "title is required")
		return
	}

	m := models.Comic{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Author:      strings.TrimSpace(req.Author),
		Description: req.Description,
		CoverURL:    req.CoverURL,
		Status:      req.Status,
	}
	if err := h.Repo.Create(c.Request.Context(), m); err != nil {
		api.Internal(c, "create failed")
		return
	}

	stored, err := h.Repo.GetByID(c.Request.Context(), m.ID)
	if err != nil || stored == nil {
		api.Internal(c, "create failed")
		return
	}
	api.Created(c, stored)
}

type comicPatch struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	CoverURL    *string `json:"cover_url"`
	Status      *string `json:"status"`
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")

	var req comicPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid json")
		return
	}

	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		api.Internal(c, "get failed")
		return
	}
	if m == nil {
		api.NotFound(c, "comic not found")
		return
	}

	// only provided fields change
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			api.BadRequest(c, "title cannot be empty")
			return
		}
		m.Title = t
	}
	if req.Author != nil {
		m.Author = *req.Author
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.CoverURL != nil {
		m.CoverURL = *req.CoverURL
	}
	if req.Status != nil {
		m.Status = *req.Status
	}

	if err := h.Repo.Update(c.Request.Context(), *m); err != nil {
		api.Internal(c, "update failed")
		return
	}

	stored, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil || stored == nil {
		api.Internal(c, "update failed")
		return
	}
	api.OK(c, stored)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		api.Internal(c, "delete failed")
		return
	}
	if !deleted {
		api.NotFound(c, "comic not found")
		return
	}
	api.OK(c, gin.H{"status": "deleted"})
}

type chapterReq struct {
	ChapterNumber *int   `json:"chapter_number"`
	Title         string `json:"title"`
}

func (h *Handler) createChapter(c *gin.Context) {
	comicID := c.Param("id")

	var req chapterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid json")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.ChapterNumber == nil || req.Title == "" {
		api.BadRequest(c, "chapter_number and title are required")
		return
	}
	if *req.ChapterNumber < 1 {
		api.BadRequest(c, "chapter_number must be positive")
		return
	}

	m, err := h.Repo.GetByID(c.Request.Context(), comicID)
	if err != nil {
		api.Internal(c, "get failed")
		return
	}
	if m == nil {
		api.NotFound(c, "comic not found")
		return
	}

	existing, err := h.Repo.GetChapterByNumber(c.Request.Context(), comicID, *req.ChapterNumber)
	if err != nil {
		api.Internal(c, "chapter lookup failed")
		return
	}
	if existing != nil {
		api.Conflict(c, "chapter number already exists")
		return
	}

	ch := models.Chapter{
		ID:            uuid.NewString(),
		ComicID:       comicID,
		ChapterNumber: *req.ChapterNumber,
		Title:         req.Title,
	}
	if err := h.Repo.CreateChapter(c.Request.Context(), ch); err != nil {
		api.Internal(c, "create chapter failed")
		return
	}

	stored, err := h.Repo.GetChapter(c.Request.Context(), ch.ID)
	if err != nil || stored == nil {
		api.Internal(c, "create chapter failed")
		return
	}

	if h.Hub != nil {
		ev := sync.ChapterEvent{
			Type:          "chapter.new",
			ComicID:       comicID,
			ChapterNumber: stored.ChapterNumber,
			Title:         stored.Title,
			At:            time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}
	if h.Notify != nil {
		go h.Notify.BroadcastNewChapter(comicID, stored.ChapterNumber, stored.Title)
	}
	api.Created(c, stored)
}

func (h *Handler) pages(c *gin.Context) {
	chapterID := c.Param("id")

	ch, err := h.Repo.GetChapter(c.Request.Context(), chapterID)
	if err != nil {
		api.Internal(c, "get chapter failed")
		return
	}
	if ch == nil {
		api.NotFound(c, "chapter not found")
		return
	}

	pages, err := h.Repo.Pages(c.Request.Context(), chapterID)
	if err != nil {
		api.Internal(c, "pages failed")
		return
	}
	api.List(c, pages, len(pages))
}

type pageReq struct {
	PageNumber *int   `json:"page_number"`
	ImageURL   string `json:"image_url"`
}

func (h *Handler) replacePages(c *gin.Context) {
	chapterID := c.Param("id")

	var reqs []pageReq
	if err := c.ShouldBindJSON(&reqs); err != nil {
		api.BadRequest(c, "body must be a page array")
		return
	}
	if len(reqs) == 0 {
		api.BadRequest(c, "page array cannot be empty")
		return
	}

	ch, err := h.Repo.GetChapter(c.Request.Context(), chapterID)
	if err != nil {
		api.Internal(c, "get chapter failed")
		return
	}
	if ch == nil {
		api.NotFound(c, "chapter not found")
		return
	}

	seen := make(map[int]bool, len(reqs))
	pages := make([]models.Page, 0, len(reqs))
	for _, p := range reqs {
		if p.PageNumber == nil || *p.PageNumber < 1 || strings.TrimSpace(p.ImageURL) == "" {
			api.BadRequest(c, "each page needs page_number and image_url")
			return
		}
		if seen[*p.PageNumber] {
			api.BadRequest(c, "duplicate page_number")
			return
		}
		seen[*p.PageNumber] = true
		pages = append(pages, models.Page{
			ID:         uuid.NewString(),
			ChapterID:  chapterID,
			PageNumber: *p.PageNumber,
			ImageURL:   strings.TrimSpace(p.ImageURL),
		})
	}

	if err := h.Repo.ReplacePages(c.Request.Context(), chapterID, pages); err != nil {
		api.Internal(c, "replace pages failed")
		return
	}

	stored, err := h.Repo.Pages(c.Request.Context(), chapterID)
	if err != nil {
		api.Internal(c, "pages failed")
		return
	}
	api.List(c, stored, len(stored))
}

func (h *Handler) Stats(c *gin.Context) {
	s, err := h.Repo.Stats(c.Request.Context())
	if err != nil {
		api.Internal(c, "stats failed")
		return
	}
	api.OK(c, s)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
