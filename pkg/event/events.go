// Package event carries accepted submissions to every connected dashboard.
package event

import "github.com/mentiond/mentiond/pkg/models"

// Message types pushed over the WebSocket channel.
const (
	TypeInitialData     = "initial_data"
	TypeNewMention      = "new_mention"
	TypeStatsUpdate     = "stats_update"
	TypeNewConversation = "new_conversation"
)

// Message is the JSON envelope sent over WebSocket.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Snapshot is the full cache view sent once when a dashboard subscribes, so
// a newly attached dashboard never starts blank.
type Snapshot struct {
	Mentions        []models.Mention                `json:"mentions"`
	Stats           map[string]models.StatsSnapshot `json:"stats"`
	MessagesPerHour map[int]int                     `json:"messages_per_hour"`
	ActiveClients   []string                        `json:"active_clients"`
}

// NewMentionMessage wraps an accepted mention for broadcast.
func NewMentionMessage(m models.Mention) Message {
	return Message{Type: TypeNewMention, Data: m}
}

// StatsUpdateMessage wraps an accepted stats snapshot for broadcast.
func StatsUpdateMessage(s models.StatsSnapshot) Message {
	return Message{Type: TypeStatsUpdate, Data: s}
}

// NewConversationMessage wraps an accepted conversation summary for
// broadcast.
func NewConversationMessage(c models.ConversationSummary) Message {
	return Message{Type: TypeNewConversation, Data: c}
}

// InitialDataMessage wraps the subscribe-time snapshot.
func InitialDataMessage(s Snapshot) Message {
	return Message{Type: TypeInitialData, Data: s}
}
