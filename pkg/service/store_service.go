// Durable store service - persistence with deduplication and retention
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mentiond/mentiond/pkg/db"
	"github.com/mentiond/mentiond/pkg/models"
	"github.com/mentiond/mentiond/pkg/utils"
)

// InsertOutcome distinguishes "row written", "duplicate absorbed by design"
// and "write failed" so callers and tests never have to guess from a nil.
type InsertOutcome int

const (
	MentionInserted InsertOutcome = iota
	MentionDuplicate
	MentionFailed
)

func (o InsertOutcome) String() string {
	switch o {
	case MentionInserted:
		return "inserted"
	case MentionDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// CleanupResult reports how many rows a retention pass removed.
type CleanupResult struct {
	MentionsDeleted int64 `json:"mentions_deleted"`
	ActivityDeleted int64 `json:"activity_rows_deleted"`
}

// DBStats is the aggregate counter set computed on demand.
type DBStats struct {
	TotalMentions   int64 `json:"total_mentions"`
	UnreadMentions  int64 `json:"unread_mentions"`
	TotalClients    int64 `json:"total_clients"`
	ActiveClients   int64 `json:"active_clients"`
	MentionsLast24h int64 `json:"mentions_last_24h"`
}

// StoreService is the system of record: mentions, channel activity counters
// and client liveness rows in a single SQLite file.
type StoreService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenDB opens the SQLite database at path and migrates the schema.
func OpenDB(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}
	if err := gdb.AutoMigrate(&db.Mention{}, &db.ChannelActivity{}, &db.Client{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return gdb, nil
}

// NewStoreService creates a store service over an opened database.
func NewStoreService(gdb *gorm.DB) *StoreService {
	return &StoreService{db: gdb, logger: utils.GetLogger()}
}

// AddMention inserts a mention row. A submission whose dedup tuple
// (timestamp, channel, user, client_id) already exists is absorbed and
// reported as MentionDuplicate; only real storage failures return an error.
func (s *StoreService) AddMention(m models.Mention) (InsertOutcome, error) {
	ts, err := models.ParseTimestamp(m.Timestamp)
	if err != nil {
		return MentionFailed, err
	}

	workspace := m.Workspace
	if workspace == "" {
		workspace = "unknown"
	}

	row := db.Mention{
		Timestamp:  ts,
		Channel:    m.Channel,
		User:       m.User,
		Text:       m.Text,
		IsQuestion: m.IsQuestion,
		Responded:  m.Responded,
		ClientID:   m.ClientID,
		Workspace:  workspace,
	}
	if err := s.db.Create(&row).Error; err != nil {
		if isDuplicateErr(err) {
			return MentionDuplicate, nil
		}
		return MentionFailed, fmt.Errorf("insert mention: %w", err)
	}
	return MentionInserted, nil
}

// GetRecentMentions returns mentions newer than now-hours, newest first,
// optionally filtered by client, capped at limit.
func (s *StoreService) GetRecentMentions(hours int, clientID string, limit int) ([]db.Mention, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	q := s.db.Where("timestamp > ?", cutoff)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	var rows []db.Mention
	if err := q.Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query recent mentions: %w", err)
	}
	return rows, nil
}

// GetUnreadMentions returns mentions not yet responded to, newest first.
func (s *StoreService) GetUnreadMentions(clientID string) ([]db.Mention, error) {
	q := s.db.Where("responded = ?", false)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	var rows []db.Mention
	if err := q.Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query unread mentions: %w", err)
	}
	return rows, nil
}

// MarkResponded flips the responded flag for the mention identified by its
// dedup tuple. Unknown keys and already-responded rows are no-ops.
func (s *StoreService) MarkResponded(key models.MentionKey) error {
	ts, err := models.ParseTimestamp(key.Timestamp)
	if err != nil {
		return err
	}
	res := s.db.Model(&db.Mention{}).
		Where("timestamp = ? AND channel = ? AND user = ? AND client_id = ?",
			ts, key.Channel, key.User, key.ClientID).
		Update("responded", true)
	if res.Error != nil {
		return fmt.Errorf("mark responded: %w", res.Error)
	}
	return nil
}

// UpsertChannelActivity increments the counter for the
// (channel, hour, date, client_id) key, creating the row on first sight.
// LastUpdated is refreshed on every call so windowed activity queries work.
func (s *StoreService) UpsertChannelActivity(channel string, count, hour int, date, clientID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row db.ChannelActivity
		err := tx.Where("channel = ? AND hour = ? AND date = ? AND client_id = ?",
			channel, hour, date, clientID).First(&row).Error
		switch {
		case err == nil:
			row.MessageCount += count
			row.LastUpdated = time.Now()
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = db.ChannelActivity{
				Channel:      channel,
				MessageCount: count,
				Hour:         hour,
				Date:         date,
				ClientID:     clientID,
				LastUpdated:  time.Now(),
			}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
}

// GetChannelActivity returns activity rows touched within the last hours,
// optionally filtered by client.
func (s *StoreService) GetChannelActivity(hours int, clientID string) ([]db.ChannelActivity, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	q := s.db.Where("last_updated > ?", cutoff)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	var rows []db.ChannelActivity
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query channel activity: %w", err)
	}
	return rows, nil
}

// TouchClient refreshes the liveness row for clientID, creating it on first
// sight. Hostname is only overwritten when provided.
func (s *StoreService) TouchClient(clientID, hostname string) error {
	now := time.Now()
	var row db.Client
	err := s.db.Where("client_id = ?", clientID).First(&row).Error
	switch {
	case err == nil:
		updates := map[string]any{"last_seen": now}
		if hostname != "" {
			updates["hostname"] = hostname
		}
		return s.db.Model(&row).Updates(updates).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = db.Client{ClientID: clientID, Hostname: hostname, LastSeen: now, FirstSeen: now}
		return s.db.Create(&row).Error
	default:
		return fmt.Errorf("lookup client %s: %w", clientID, err)
	}
}

// GetActiveClients returns clients seen within the last minutes.
func (s *StoreService) GetActiveClients(minutes int) ([]db.Client, error) {
	cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
	var rows []db.Client
	if err := s.db.Where("last_seen > ?", cutoff).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query active clients: %w", err)
	}
	return rows, nil
}

// Cleanup hard-deletes mentions older than days and activity rows with a
// date before today-days. days = 0 wipes all mention history; it backs the
// debug clear operation.
func (s *StoreService) Cleanup(days int) (CleanupResult, error) {
	var result CleanupResult
	cutoff := time.Now().AddDate(0, 0, -days)

	res := s.db.Where("timestamp < ?", cutoff).Delete(&db.Mention{})
	if res.Error != nil {
		return result, fmt.Errorf("delete old mentions: %w", res.Error)
	}
	result.MentionsDeleted = res.RowsAffected

	cutoffDate := cutoff.Format("2006-01-02")
	res = s.db.Where("date < ?", cutoffDate).Delete(&db.ChannelActivity{})
	if res.Error != nil {
		return result, fmt.Errorf("delete old activity: %w", res.Error)
	}
	result.ActivityDeleted = res.RowsAffected

	return result, nil
}

// Stats computes the aggregate counters on demand.
func (s *StoreService) Stats() (DBStats, error) {
	var stats DBStats
	if err := s.db.Model(&db.Mention{}).Count(&stats.TotalMentions).Error; err != nil {
		return stats, fmt.Errorf("count mentions: %w", err)
	}
	if err := s.db.Model(&db.Mention{}).Where("responded = ?", false).Count(&stats.UnreadMentions).Error; err != nil {
		return stats, fmt.Errorf("count unread mentions: %w", err)
	}
	if err := s.db.Model(&db.Client{}).Count(&stats.TotalClients).Error; err != nil {
		return stats, fmt.Errorf("count clients: %w", err)
	}
	activeCutoff := time.Now().Add(-10 * time.Minute)
	if err := s.db.Model(&db.Client{}).Where("last_seen > ?", activeCutoff).Count(&stats.ActiveClients).Error; err != nil {
		return stats, fmt.Errorf("count active clients: %w", err)
	}
	dayCutoff := time.Now().Add(-24 * time.Hour)
	if err := s.db.Model(&db.Mention{}).Where("timestamp > ?", dayCutoff).Count(&stats.MentionsLast24h).Error; err != nil {
		return stats, fmt.Errorf("count recent mentions: %w", err)
	}
	return stats, nil
}

// isDuplicateErr reports whether err is a uniqueness-constraint violation.
// Checked both via gorm's translated error and the raw SQLite message since
// error translation depends on the dialector configuration.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
