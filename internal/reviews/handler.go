package reviews

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"comicshelf/internal/auth"
	"comicshelf/pkg/api"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterComicRoutes hangs the review endpoints off the comics group.
// Listing is public; posting needs a logged-in reader.
func (h *Handler) RegisterComicRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/:id/reviews", h.listByComic)
	rg.POST("/:id/reviews", authMW, h.create)
}

func (h *Handler) RegisterReviewRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.DELETE("/:id", authMW, h.remove)
}

type createReq struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		api.Unauthorized(c, "unauthorized")
		return
	}

	comicID := strings.TrimSpace(c.Param("id"))
	if comicID == "" {
		api.BadRequest(c, "comic id required")
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "invalid json")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		api.BadRequest(c, "rating must be between 1 and 5")
		return
	}

	exists, err := h.Repo.ComicExists(c.Request.Context(), comicID)
	if err != nil {
		api.Internal(c, "lookup failed")
		return
	}
	if !exists {
		api.NotFound(c, "comic not found")
		return
	}

	review, err := h.Repo.Create(c.Request.Context(), claims.UserID, comicID, req.Rating, strings.TrimSpace(req.Text))
	if err != nil {
		api.Internal(c, "create failed")
		return
	}

	api.Created(c, review)
}

func (h *Handler) listByComic(c *gin.Context) {
	comicID := strings.TrimSpace(c.Param("id"))
	if comicID == "" {
		api.BadRequest(c, "comic id required")
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	reviews, err := h.Repo.ListByComic(c.Request.Context(), comicID, limit, offset)
	if err != nil {
		api.Internal(c, "list failed")
		return
	}
	api.List(c, reviews, len(reviews))
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		api.Unauthorized(c, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(c, "invalid id")
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), id, claims.UserID)
	if err != nil {
		api.Internal(c, "delete failed")
		return
	}
	if !ok {
		api.NotFound(c, "not found")
		return
	}

	api.OK(c, gin.H{"status": "deleted"})
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
