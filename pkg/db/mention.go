// Database models for the durable mention store.
package db

import "time"

// Mention is a persisted mention record. The (timestamp, channel, user,
// client_id) tuple is unique; a second insert with the same tuple is
// absorbed as a duplicate, never an error.
type Mention struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Timestamp  time.Time `json:"timestamp" gorm:"uniqueIndex:uniq_mention;index:idx_timestamp_client,priority:1;not null"`
	Channel    string    `json:"channel" gorm:"uniqueIndex:uniq_mention;size:200;not null"`
	User       string    `json:"user" gorm:"uniqueIndex:uniq_mention;size:200;not null"`
	Text       string    `json:"text" gorm:"type:text;not null"`
	IsQuestion bool      `json:"is_question" gorm:"default:false"`
	Responded  bool      `json:"responded" gorm:"default:false"`
	ClientID   string    `json:"client_id" gorm:"uniqueIndex:uniq_mention;index:idx_timestamp_client,priority:2;size:200;not null"`
	Workspace  string    `json:"workspace" gorm:"size:200;not null;default:'unknown'"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Mention) TableName() string {
	return "mentions"
}
