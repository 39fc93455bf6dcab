package db

import "time"

// Client is a liveness record for a producing poller instance. "Active" is
// never stored; it is recomputed from LastSeen at query time.
type Client struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ClientID  string    `json:"client_id" gorm:"uniqueIndex;size:200;not null"`
	Hostname  string    `json:"hostname" gorm:"size:200"`
	LastSeen  time.Time `json:"last_seen" gorm:"index"`
	FirstSeen time.Time `json:"first_seen"`
}

func (Client) TableName() string {
	return "clients"
}
