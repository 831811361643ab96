package migrate

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mangashelf/internal/event"
	"mangashelf/internal/flags"
	"mangashelf/pkg/models"
)

// EntryGetter resolves the entry ids in the request into full entries.
type EntryGetter interface {
	GetEntry(ctx context.Context, id int64) (*models.Entry, error)
}

// Broadcaster pushes the migration event to connected clients.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type Handler struct {
	Migrator *Migrator
	Getter   EntryGetter
	Hub      Broadcaster
}

func NewHandler(m *Migrator, getter EntryGetter, hub Broadcaster) *Handler {
	return &Handler{Migrator: m, Getter: getter, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/migrate", h.migrate)
	rg.GET("/migrate/status", h.status)
}

type migrateReq struct {
	OldID   int64 `json:"old_id"`
	NewID   int64 `json:"new_id"`
	Replace bool  `json:"replace"`

	// Nil means migrate everything.
	Chapters    *bool `json:"chapters"`
	Categories  *bool `json:"categories"`
	Tracks      *bool `json:"tracks"`
	CustomCover *bool `json:"custom_cover"`
}

func (r migrateReq) flags() int64 {
	pick := func(p *bool, bit int64) int64 {
		if p == nil || *p {
			return bit
		}
		return 0
	}
	return pick(r.Chapters, flags.MigrateChapters) |
		pick(r.Categories, flags.MigrateCategories) |
		pick(r.Tracks, flags.MigrateTracks) |
		pick(r.CustomCover, flags.MigrateCustomCover)
}

func (h *Handler) migrate(c *gin.Context) {
	var req migrateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.OldID == 0 || req.NewID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_id and new_id required"})
		return
	}
	if req.OldID == req.NewID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_id and new_id must differ"})
		return
	}

	ctx := c.Request.Context()
	oldEntry, err := h.Getter.GetEntry(ctx, req.OldID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	newEntry, err := h.Getter.GetEntry(ctx, req.NewID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if oldEntry == nil || newEntry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	err = h.Migrator.Migrate(ctx, *oldEntry, *newEntry, req.Replace, req.flags())
	switch {
	case errors.Is(err, ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "migration in progress"})
		return
	case errors.Is(err, ErrUnknownSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "target source fetch failed"})
		return
	}

	if h.Hub != nil {
		go h.Hub.BroadcastJSON(event.MigratedEvent{
			Type:  "entry.migrated",
			OldID: oldEntry.ID,
			NewID: newEntry.ID,
			At:    time.Now().UTC(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"old_id":   oldEntry.ID,
		"new_id":   newEntry.ID,
		"replaced": req.Replace,
	})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"migrating": h.Migrator.IsMigrating()})
}
