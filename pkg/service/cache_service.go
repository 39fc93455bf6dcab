// Hot cache service - bounded in-memory mirror of recent state
package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mentiond/mentiond/pkg/models"
	"github.com/mentiond/mentiond/pkg/utils"
)

// CacheService is the process-local projection of recent state serving the
// query API and WebSocket bootstrap. All fields are guarded by one mutex so
// cross-field updates (mention append + hourly counter bump) appear atomic
// to readers. It is not the system of record: the oldest entries are evicted
// once a ring is full, while the durable store keeps them until retention
// cleanup.
type CacheService struct {
	mu            sync.Mutex
	mentions      []models.Mention
	mentionCap    int
	conversations []models.ConversationSummary
	convCap       int
	stats         map[string]models.StatsSnapshot
	hourly        map[string]*[24]int
	connected     map[string]time.Time
	logger        *slog.Logger
}

// NewCacheService creates a cache with the given ring capacities.
func NewCacheService(mentionCap, convCap int) *CacheService {
	return &CacheService{
		mentions:      make([]models.Mention, 0, mentionCap),
		mentionCap:    mentionCap,
		conversations: make([]models.ConversationSummary, 0, convCap),
		convCap:       convCap,
		stats:         make(map[string]models.StatsSnapshot),
		hourly:        make(map[string]*[24]int),
		connected:     make(map[string]time.Time),
		logger:        utils.GetLogger(),
	}
}

// AddMention appends to the mention ring, evicting the oldest entry at
// capacity, and bumps the submitting client's hourly histogram slot.
func (c *CacheService) AddMention(m models.Mention) {
	ts, err := models.ParseTimestamp(m.Timestamp)
	if err != nil {
		// Ingestion validates timestamps; anything else reaching this
		// point is still cached, just invisible to the histogram.
		c.logger.Warn("cached mention with unparsable timestamp", "timestamp", m.Timestamp)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.mentions) >= c.mentionCap {
		c.mentions = c.mentions[1:]
	}
	c.mentions = append(c.mentions, m)

	if err == nil {
		counts, ok := c.hourly[m.ClientID]
		if !ok {
			counts = &[24]int{}
			c.hourly[m.ClientID] = counts
		}
		counts[ts.Hour()]++
	}
}

// AddConversation appends to the conversation ring.
func (c *CacheService) AddConversation(conv models.ConversationSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.conversations) >= c.convCap {
		c.conversations = c.conversations[1:]
	}
	c.conversations = append(c.conversations, conv)
}

// UpdateStats overwrites the client's latest snapshot and stamps its
// liveness. This map is the sole source of "active" for the real-time view.
func (c *CacheService) UpdateStats(s models.StatsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[s.ClientID] = s
	c.connected[s.ClientID] = time.Now()
}

// MarkResponded flips the responded flag on every cached copy of the
// mention identified by its dedup tuple.
func (c *CacheService) MarkResponded(key models.MentionKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.mentions {
		m := &c.mentions[i]
		if m.Timestamp == key.Timestamp && m.Channel == key.Channel &&
			m.User == key.User && m.ClientID == key.ClientID {
			m.Responded = true
		}
	}
}

// GetRecentMentions returns cached mentions newer than now-hours, newest
// first, optionally filtered by client. Entries with unparsable timestamps
// are skipped, not fatal.
func (c *CacheService) GetRecentMentions(hours int, clientID string) []models.Mention {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	c.mu.Lock()
	defer c.mu.Unlock()

	type stamped struct {
		m  models.Mention
		ts time.Time
	}
	var out []stamped
	for _, m := range c.mentions {
		if clientID != "" && m.ClientID != clientID {
			continue
		}
		ts, err := models.ParseTimestamp(m.Timestamp)
		if err != nil || !ts.After(cutoff) {
			continue
		}
		out = append(out, stamped{m, ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ts.After(out[j].ts) })

	result := make([]models.Mention, 0, len(out))
	for _, s := range out {
		result = append(result, s.m)
	}
	return result
}

// GetUnreadMentions returns cached mentions not yet responded to, newest
// first.
func (c *CacheService) GetUnreadMentions(clientID string) []models.Mention {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]models.Mention, 0)
	for _, m := range c.mentions {
		if m.Responded {
			continue
		}
		if clientID != "" && m.ClientID != clientID {
			continue
		}
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		ti, erri := models.ParseTimestamp(result[i].Timestamp)
		tj, errj := models.ParseTimestamp(result[j].Timestamp)
		if erri != nil || errj != nil {
			return false
		}
		return ti.After(tj)
	})
	return result
}

// GetStats returns the latest snapshot per client, or only the requested
// client's entry when clientID is set.
func (c *CacheService) GetStats(clientID string) map[string]models.StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]models.StatsSnapshot)
	if clientID != "" {
		if s, ok := c.stats[clientID]; ok {
			result[clientID] = s
		}
		return result
	}
	for k, v := range c.stats {
		result[k] = v
	}
	return result
}

// GetMessagesPerHour returns the 24-slot histogram for one client, or the
// slot-wise sum across all clients when clientID is empty.
func (c *CacheService) GetMessagesPerHour(clientID string) map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[int]int, 24)
	if clientID != "" {
		counts := c.hourly[clientID]
		for h := 0; h < 24; h++ {
			if counts != nil {
				result[h] = counts[h]
			} else {
				result[h] = 0
			}
		}
		return result
	}
	for h := 0; h < 24; h++ {
		result[h] = 0
	}
	for _, counts := range c.hourly {
		for h, n := range counts {
			result[h] += n
		}
	}
	return result
}

// GetConversations returns up to limit summaries, most recent first.
func (c *CacheService) GetConversations(limit int) []models.ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.conversations)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]models.ConversationSummary, 0, n)
	for i := len(c.conversations) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, c.conversations[i])
	}
	return result
}

// GetActiveClients returns clients whose last stats submission is within
// the recency window.
func (c *CacheService) GetActiveClients(minutes int) []string {
	cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)

	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]string, 0, len(c.connected))
	for clientID, lastSeen := range c.connected {
		if lastSeen.After(cutoff) {
			result = append(result, clientID)
		}
	}
	sort.Strings(result)
	return result
}

// MentionCount returns the number of cached mentions.
func (c *CacheService) MentionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mentions)
}

// UnreadCount returns the number of cached unresponded mentions.
func (c *CacheService) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.mentions {
		if !m.Responded {
			n++
		}
	}
	return n
}

// Reset drops all cached state. Used by the debug clear operation.
func (c *CacheService) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mentions = c.mentions[:0]
	c.conversations = c.conversations[:0]
	c.stats = make(map[string]models.StatsSnapshot)
	c.hourly = make(map[string]*[24]int)
	c.connected = make(map[string]time.Time)
}
