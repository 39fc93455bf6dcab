// Debug handlers - development-only surface for iterating on dashboards
// without a live poller. Mounted only when debug is enabled in the config.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentiond/mentiond/pkg/service"
)

// DebugHandler seeds synthetic data, wipes state, and exposes raw store
// counters.
type DebugHandler struct {
	Cache  *service.CacheService
	Store  *service.StoreService
	Mock   *service.MockService
	Logger *slog.Logger
}

func NewDebugHandler(cache *service.CacheService, store *service.StoreService, mock *service.MockService, logger *slog.Logger) *DebugHandler {
	return &DebugHandler{Cache: cache, Store: store, Mock: mock, Logger: logger}
}

// Seed handles POST /api/debug/seed?scenario=. It pushes a generated data
// set through the same cache and store paths real submissions take.
func (h *DebugHandler) Seed(c *gin.Context) {
	scenario := c.DefaultQuery("scenario", "default")
	set := h.Mock.GenerateScenario(scenario)

	inserted := 0
	for _, m := range set.Mentions {
		h.Cache.AddMention(m)
		outcome, err := h.Store.AddMention(m)
		if err != nil {
			h.Logger.Warn("seed mention insert failed", "error", err)
			continue
		}
		if outcome == service.MentionInserted {
			inserted++
		}
	}
	for _, s := range set.Stats {
		h.Cache.UpdateStats(s)
		if err := h.Store.TouchClient(s.ClientID, ""); err != nil {
			h.Logger.Warn("seed client touch failed", "error", err)
		}
	}
	for _, a := range set.Activity {
		if err := h.Store.UpsertChannelActivity(a.Channel, a.MessageCount, a.Hour, a.Date, a.ClientID); err != nil {
			h.Logger.Warn("seed activity upsert failed", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "seeded",
		"scenario":      set.Scenario,
		"mentions":      len(set.Mentions),
		"mentions_new":  inserted,
		"stats":         len(set.Stats),
		"activity_rows": len(set.Activity),
	})
}

// Clear handles POST /api/debug/clear: wipes the durable store and resets
// the cache. This is the deliberate full-clear operation, not retention.
func (h *DebugHandler) Clear(c *gin.Context) {
	result, err := h.Store.Cleanup(0)
	if err != nil {
		h.Logger.Error("debug clear failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear data"})
		return
	}
	h.Cache.Reset()

	c.JSON(http.StatusOK, gin.H{
		"status":                "cleared",
		"mentions_deleted":      result.MentionsDeleted,
		"activity_rows_deleted": result.ActivityDeleted,
	})
}

// DBStats handles GET /api/debug/db-stats: raw durable-store counters.
func (h *DebugHandler) DBStats(c *gin.Context) {
	stats, err := h.Store.Stats()
	if err != nil {
		h.Logger.Error("failed to compute db stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
