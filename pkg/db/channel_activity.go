package db

import "time"

// ChannelActivity is a per-(channel, hour, date, client_id) message counter.
// Unlike mentions, repeated submissions for the same key accumulate.
type ChannelActivity struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Channel      string    `json:"channel" gorm:"uniqueIndex:uniq_activity;index:idx_channel_date,priority:1;size:200;not null"`
	MessageCount int       `json:"message_count" gorm:"default:0"`
	Hour         int       `json:"hour" gorm:"uniqueIndex:uniq_activity;not null"` // 0-23
	Date         string    `json:"date" gorm:"uniqueIndex:uniq_activity;index:idx_channel_date,priority:2;size:10;not null"` // YYYY-MM-DD
	ClientID     string    `json:"client_id" gorm:"uniqueIndex:uniq_activity;size:200;not null"`
	LastUpdated  time.Time `json:"last_updated" gorm:"index"`
}

func (ChannelActivity) TableName() string {
	return "channel_activity"
}
