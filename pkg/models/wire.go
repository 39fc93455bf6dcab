// Wire contract types shared by the ingestion and query APIs.
package models

import (
	"fmt"
	"time"
)

// Mention is an observed chat message relevant to the monitored user,
// as submitted by a polling client.
type Mention struct {
	Timestamp  string `json:"timestamp" binding:"required"`
	Channel    string `json:"channel" binding:"required"`
	User       string `json:"user" binding:"required"`
	Text       string `json:"text" binding:"required"`
	IsQuestion bool   `json:"is_question"`
	Responded  bool   `json:"responded"`
	ClientID   string `json:"client_id" binding:"required"`
	Workspace  string `json:"workspace,omitempty"`
}

// StatsSnapshot is the latest-known per-client summary. Only the most
// recent snapshot per client is kept; each submission overwrites the last.
type StatsSnapshot struct {
	ClientID         string   `json:"client_id" binding:"required"`
	UnreadCount      int      `json:"unread_count"`
	MessagesLastHour int      `json:"messages_last_hour"`
	ActiveChannels   []string `json:"active_channels"`
	Timestamp        string   `json:"timestamp" binding:"required"`
}

// ConversationSummary describes a burst of channel activity. Summaries are
// derived data and are never persisted, only cached and broadcast.
type ConversationSummary struct {
	Channel          string   `json:"channel" binding:"required"`
	ParticipantCount int      `json:"participant_count"`
	MessageCount     int      `json:"message_count"`
	Topics           []string `json:"topics"`
	StartTime        string   `json:"start_time" binding:"required"`
	EndTime          string   `json:"end_time" binding:"required"`
	ClientID         string   `json:"client_id" binding:"required"`
}

// ChannelActivityReport is a per-(channel, hour, date) message count
// submitted by a polling client. Repeated reports for the same key
// accumulate server-side.
type ChannelActivityReport struct {
	Channel      string `json:"channel" binding:"required"`
	MessageCount int    `json:"message_count"` // zero is a valid count
	Hour         int    `json:"hour"`
	Date         string `json:"date" binding:"required"` // YYYY-MM-DD
	ClientID     string `json:"client_id" binding:"required"`
	Hostname     string `json:"hostname,omitempty"`
}

// MentionKey identifies a mention by its deduplication tuple.
type MentionKey struct {
	Timestamp string `json:"timestamp" binding:"required"`
	Channel   string `json:"channel" binding:"required"`
	User      string `json:"user" binding:"required"`
	ClientID  string `json:"client_id" binding:"required"`
}

// ServiceSummary is the response for GET /.
type ServiceSummary struct {
	Service             string   `json:"service"`
	Version             string   `json:"version"`
	ActiveClients       []string `json:"active_clients"`
	TotalMentions       int      `json:"total_mentions"`
	UnreadMentions      int      `json:"unread_mentions"`
	ConnectedDashboards int      `json:"connected_dashboards"`
}

// isoLayouts are the accepted timestamp formats. Producers written against
// different platforms emit either RFC 3339 or a zone-less ISO-8601 string.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a producer-supplied ISO-8601 timestamp. Zone-less
// values are interpreted in server local time, matching how producers on the
// same machine record event times.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}
