// Ingestion handlers - producer-facing write endpoints.
//
// Every accepted submission follows the same path: synchronous hot-cache
// update, non-blocking durable write through the persistence queue, fan-out
// broadcast, then an immediate acknowledgement. The producer never waits on
// (or learns about) the durable write; its own idempotent retrying repairs
// any gap.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentiond/mentiond/pkg/event"
	"github.com/mentiond/mentiond/pkg/models"
	"github.com/mentiond/mentiond/pkg/service"
)

// IngestHandler accepts submissions from polling clients.
type IngestHandler struct {
	Cache   *service.CacheService
	Store   *service.StoreService
	Persist *service.PersistService
	Hub     *event.Hub
	Logger  *slog.Logger
}

func NewIngestHandler(cache *service.CacheService, store *service.StoreService, persist *service.PersistService, hub *event.Hub, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{Cache: cache, Store: store, Persist: persist, Hub: hub, Logger: logger}
}

// ReportMention handles POST /api/mention.
func (h *IngestHandler) ReportMention(c *gin.Context) {
	var m models.Mention
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if _, err := models.ParseTimestamp(m.Timestamp); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if m.Workspace == "" {
		m.Workspace = "unknown"
	}

	h.Cache.AddMention(m)

	mention := m
	h.Persist.Enqueue("mention insert", func() error {
		outcome, err := h.Store.AddMention(mention)
		if outcome == service.MentionDuplicate {
			h.Logger.Debug("duplicate mention absorbed",
				"client_id", mention.ClientID, "timestamp", mention.Timestamp)
		}
		return err
	})

	h.Hub.Broadcast(event.NewMentionMessage(m))

	c.JSON(http.StatusOK, gin.H{"status": "received", "mention_id": m.Timestamp})
}

// ReportStats handles POST /api/stats.
func (h *IngestHandler) ReportStats(c *gin.Context) {
	var s models.StatsSnapshot
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	h.Cache.UpdateStats(s)

	clientID := s.ClientID
	h.Persist.Enqueue("client touch", func() error {
		return h.Store.TouchClient(clientID, "")
	})

	h.Hub.Broadcast(event.StatsUpdateMessage(s))

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// ReportConversation handles POST /api/conversation. Summaries are derived
// data: cached and broadcast, never persisted.
func (h *IngestHandler) ReportConversation(c *gin.Context) {
	var conv models.ConversationSummary
	if err := c.ShouldBindJSON(&conv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	h.Cache.AddConversation(conv)
	h.Hub.Broadcast(event.NewConversationMessage(conv))

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// ReportActivity handles POST /api/activity. Activity counts are additive
// telemetry: repeated reports for the same (channel, hour, date, client)
// key accumulate rather than dedupe.
func (h *IngestHandler) ReportActivity(c *gin.Context) {
	var report models.ChannelActivityReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if report.Hour < 0 || report.Hour > 23 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "hour must be between 0 and 23"})
		return
	}
	if report.MessageCount < 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "message_count must not be negative"})
		return
	}

	r := report
	h.Persist.Enqueue("activity upsert", func() error {
		if err := h.Store.UpsertChannelActivity(r.Channel, r.MessageCount, r.Hour, r.Date, r.ClientID); err != nil {
			return err
		}
		return h.Store.TouchClient(r.ClientID, r.Hostname)
	})

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
