package library

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mangashelf/internal/category"
	"mangashelf/internal/event"
	"mangashelf/internal/flags"
	"mangashelf/internal/notify"
	"mangashelf/internal/source"
	"mangashelf/internal/syncer"
	"mangashelf/pkg/models"
)

type Handler struct {
	Repo       *Repo
	Categories *category.Repo
	Sources    *source.Registry
	Syncer     *syncer.Syncer
	Hub        *event.Hub
	Notify     *notify.Server
}

func NewHandler(repo *Repo, cats *category.Repo, sources *source.Registry, sy *syncer.Syncer, hub *event.Hub, push *notify.Server) *Handler {
	return &Handler{Repo: repo, Categories: cats, Sources: sources, Syncer: sy, Hub: hub, Notify: push}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library", h.list)
	rg.POST("/library", h.add)
	rg.GET("/library/:id", h.getOne)
	rg.GET("/library/:id/chapters", h.chapters)
	rg.POST("/library/:id/sync", h.sync)
	rg.PUT("/library/:id/viewer", h.setViewer)
	rg.PUT("/library/:id/categories", h.setCategories)
	rg.PATCH("/chapters/:id", h.updateChapter)
}

func (h *Handler) list(c *gin.Context) {
	entries, err := h.Repo.ListEntries(c.Request.Context(), strings.TrimSpace(c.Query("source")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type addReq struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Favorite bool   `json:"favorite"`
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.SourceID) == "" || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_id and url required"})
		return
	}
	if _, ok := h.Sources.Get(req.SourceID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
		return
	}

	entry := models.Entry{
		SourceID: req.SourceID,
		URL:      req.URL,
		Title:    strings.TrimSpace(req.Title),
		Favorite: req.Favorite,
	}
	if entry.Favorite {
		entry.DateAdded = time.Now().UnixMilli()
	}
	saved, err := h.Repo.InsertEntry(c.Request.Context(), entry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) getOne(c *gin.Context) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) chapters(c *gin.Context) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return
	}
	chapters, err := h.Repo.GetByEntry(c.Request.Context(), entry.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry_id": entry.ID, "chapters": chapters})
}

// sync fetches the remote listing for one entry and reconciles it with the
// database, reporting how many genuinely new chapters appeared.
func (h *Handler) sync(c *gin.Context) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return
	}
	driver, found := h.Sources.Get(entry.SourceID)
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
		return
	}

	ctx := c.Request.Context()
	raw, err := driver.FetchChapterList(ctx, *entry)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "source fetch failed"})
		return
	}

	fresh, err := h.Syncer.Sync(ctx, raw, *entry, driver)
	if errors.Is(err, syncer.ErrNoChapters) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "no chapters found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	if len(fresh) > 0 {
		if h.Hub != nil {
			ev := event.NewChaptersEvent{
				Type:    "chapters.new",
				EntryID: entry.ID,
				Count:   len(fresh),
				At:      time.Now().UTC(),
			}
			go h.Hub.BroadcastJSON(ev)
		}
		if h.Notify != nil {
			go h.Notify.BroadcastNewChapters(entry.ID, entry.Title, len(fresh))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"entry_id":     entry.ID,
		"new_chapters": len(fresh),
		"chapters":     fresh,
	})
}

type viewerReq struct {
	ReadingMode string `json:"reading_mode"`
	Orientation string `json:"orientation"`
}

func (h *Handler) setViewer(c *gin.Context) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return
	}
	var req viewerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	newFlags := entry.ViewerFlags
	if req.ReadingMode != "" {
		f, found := flags.ReadingModes.ByName(strings.ToLower(strings.TrimSpace(req.ReadingMode)))
		if !found {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reading mode"})
			return
		}
		newFlags = flags.ReadingModes.Apply(newFlags, f)
	}
	if req.Orientation != "" {
		f, found := flags.Orientations.ByName(strings.ToLower(strings.TrimSpace(req.Orientation)))
		if !found {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown orientation"})
			return
		}
		newFlags = flags.Orientations.Apply(newFlags, f)
	}

	if newFlags != entry.ViewerFlags {
		upd := models.EntryUpdate{ID: entry.ID, ViewerFlags: &newFlags}
		if err := h.Repo.UpdateEntry(c.Request.Context(), upd); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           entry.ID,
		"viewer_flags": newFlags,
		"reading_mode": flags.ReadingModes.Decode(newFlags).Name,
		"orientation":  flags.Orientations.Decode(newFlags).Name,
	})
}

type setCategoriesReq struct {
	CategoryIDs []int64 `json:"category_ids"`
}

func (h *Handler) setCategories(c *gin.Context) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return
	}
	var req setCategoriesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Categories.SetForEntry(c.Request.Context(), entry.ID, req.CategoryIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry_id": entry.ID, "category_ids": req.CategoryIDs})
}

type chapterPatchReq struct {
	Read         *bool  `json:"read"`
	Bookmark     *bool  `json:"bookmark"`
	LastPageRead *int64 `json:"last_page_read"`
}

func (h *Handler) updateChapter(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req chapterPatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Read == nil && req.Bookmark == nil && req.LastPageRead == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	upd := models.ChapterUpdate{
		ID:           id,
		Read:         req.Read,
		Bookmark:     req.Bookmark,
		LastPageRead: req.LastPageRead,
	}
	if err := h.Repo.UpdateAll(c.Request.Context(), []models.ChapterUpdate{upd}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (h *Handler) loadEntry(c *gin.Context) (*models.Entry, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	entry, err := h.Repo.GetEntry(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return nil, false
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return entry, true
}
