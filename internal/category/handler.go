package category

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mangashelf/internal/flags"
	"mangashelf/pkg/models"
)

type Handler struct {
	Repo      *Repo
	Reorderer *Reorderer
}

func NewHandler(repo *Repo, reorderer *Reorderer) *Handler {
	return &Handler{Repo: repo, Reorderer: reorderer}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.list)
	rg.POST("/categories", h.create)
	rg.PATCH("/categories/:id/move", h.move)
	rg.PATCH("/categories/:id/sort", h.setSort)
}

func (h *Handler) list(c *gin.Context) {
	cats, err := h.Repo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

type createReq struct {
	Name string `json:"name"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	cat, err := h.Repo.Create(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, cat)
}

type moveReq struct {
	Dir string `json:"dir"` // "up" or "down"
}

func (h *Handler) move(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req moveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var res Result
	switch strings.ToLower(strings.TrimSpace(req.Dir)) {
	case "up":
		res = h.Reorderer.MoveUp(c.Request.Context(), id)
	case "down":
		res = h.Reorderer.MoveDown(c.Request.Context(), id)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "dir must be up or down"})
		return
	}

	switch res.(type) {
	case Success:
		c.JSON(http.StatusOK, gin.H{"status": "moved"})
	case Unchanged:
		c.JSON(http.StatusOK, gin.H{"status": "unchanged"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "move failed"})
	}
}

type sortReq struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

func (h *Handler) setSort(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req sortReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	cat, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if cat == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	newFlags := cat.Flags
	if req.Type != "" {
		f, ok := flags.SortTypes.ByName(strings.ToUpper(strings.TrimSpace(req.Type)))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sort type"})
			return
		}
		newFlags = flags.SortTypes.Apply(newFlags, f)
	}
	if req.Direction != "" {
		f, ok := flags.SortDirections.ByName(strings.ToUpper(strings.TrimSpace(req.Direction)))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sort direction"})
			return
		}
		newFlags = flags.SortDirections.Apply(newFlags, f)
	}

	if newFlags != cat.Flags {
		update := models.CategoryUpdate{ID: cat.ID, Flags: &newFlags}
		if err := h.Repo.UpdatePartial(c.Request.Context(), []models.CategoryUpdate{update}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
	}

	cat.Flags = newFlags
	sort := flags.SortFromFlags(cat.Flags)
	c.JSON(http.StatusOK, gin.H{
		"id":        cat.ID,
		"flags":     cat.Flags,
		"type":      sort.Type.Name,
		"direction": sort.Direction.Name,
	})
}
