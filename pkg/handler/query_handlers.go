// Query handlers - read-only endpoints for dashboard bootstrap and polling
// fallback. All reads come from the hot cache; staleness is bounded by the
// cache eviction horizon, which is acceptable for a live dashboard. The one
// exception is the windowed activity query, which is a historical view the
// cache does not hold.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mentiond/mentiond/pkg/models"
	"github.com/mentiond/mentiond/pkg/service"
)

// QueryHandler serves the read API.
type QueryHandler struct {
	Cache  *service.CacheService
	Store  *service.StoreService
	Logger *slog.Logger
}

func NewQueryHandler(cache *service.CacheService, store *service.StoreService, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{Cache: cache, Store: store, Logger: logger}
}

// Mentions handles GET /api/mentions?hours=&client_id=.
func (h *QueryHandler) Mentions(c *gin.Context) {
	hours := intQuery(c, "hours", 24)
	c.JSON(http.StatusOK, h.Cache.GetRecentMentions(hours, c.Query("client_id")))
}

// UnreadMentions handles GET /api/mentions/unread?client_id=.
func (h *QueryHandler) UnreadMentions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cache.GetUnreadMentions(c.Query("client_id")))
}

// Stats handles GET /api/stats?client_id=. With a client_id it returns that
// client's snapshot (or an empty object when unknown); otherwise the full
// per-client map.
func (h *QueryHandler) Stats(c *gin.Context) {
	clientID := c.Query("client_id")
	stats := h.Cache.GetStats(clientID)
	if clientID != "" {
		if s, ok := stats[clientID]; ok {
			c.JSON(http.StatusOK, s)
		} else {
			c.JSON(http.StatusOK, gin.H{})
		}
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MessagesPerHour handles GET /api/messages-per-hour?client_id=.
func (h *QueryHandler) MessagesPerHour(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cache.GetMessagesPerHour(c.Query("client_id")))
}

// Conversations handles GET /api/conversations?limit=, most recent first.
func (h *QueryHandler) Conversations(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	c.JSON(http.StatusOK, h.Cache.GetConversations(limit))
}

// Activity handles GET /api/activity?hours=&client_id=. Reads the durable
// store's windowed counters.
func (h *QueryHandler) Activity(c *gin.Context) {
	hours := intQuery(c, "hours", 24)
	rows, err := h.Store.GetChannelActivity(hours, c.Query("client_id"))
	if err != nil {
		h.Logger.Error("failed to query channel activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query channel activity"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// MarkResponded handles POST /api/mentions/responded. The mention is
// addressed by its dedup tuple so the durable row and every cached copy can
// be updated together. Unknown keys are a no-op.
func (h *QueryHandler) MarkResponded(c *gin.Context) {
	var key models.MentionKey
	if err := c.ShouldBindJSON(&key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if _, err := models.ParseTimestamp(key.Timestamp); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.MarkResponded(key); err != nil {
		h.Logger.Error("failed to mark mention responded", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark responded"})
		return
	}
	h.Cache.MarkResponded(key)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
