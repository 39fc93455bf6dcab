// Retention service - scheduled age-based cleanup of the durable store
package service

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/mentiond/mentiond/pkg/utils"
)

// RetentionService runs the durable store's cleanup on a daily schedule.
type RetentionService struct {
	store  *StoreService
	days   int
	cron   *cron.Cron
	logger *slog.Logger
}

// NewRetentionService creates a retention scheduler deleting data older
// than days.
func NewRetentionService(store *StoreService, days int) *RetentionService {
	return &RetentionService{
		store:  store,
		days:   days,
		cron:   cron.New(),
		logger: utils.GetLogger(),
	}
}

// Start registers the daily cleanup job (03:00 server time) and starts the
// scheduler.
func (r *RetentionService) Start() error {
	_, err := r.cron.AddFunc("0 3 * * *", r.runCleanup)
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("retention scheduler started", "days", r.days)
	return nil
}

// Stop stops the scheduler.
func (r *RetentionService) Stop() {
	r.cron.Stop()
}

func (r *RetentionService) runCleanup() {
	result, err := r.store.Cleanup(r.days)
	if err != nil {
		r.logger.Error("retention cleanup failed", "error", err)
		return
	}
	r.logger.Info("retention cleanup finished",
		"mentions_deleted", result.MentionsDeleted,
		"activity_rows_deleted", result.ActivityDeleted)
}
