package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/models"
)

const sweepInterval = time.Hour

// Scheduler prunes action-log entries past the retention window. The
// activity feed only ever shows the newest entries, so old rows are pure
// storage growth.
type Scheduler struct {
	retentionDays int
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewScheduler reads LOG_RETENTION_DAYS (default 30, 0 disables pruning).
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	retentionDays := 30

	if value := os.Getenv("LOG_RETENTION_DAYS"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			log.Printf("Invalid LOG_RETENTION_DAYS %q, using default", value)
		} else {
			retentionDays = parsed
		}
	}

	return &Scheduler{
		retentionDays: retentionDays,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins the hourly sweep in the background.
func (s *Scheduler) Start() {
	if s.retentionDays == 0 {
		log.Println("Action log retention disabled")
		return
	}

	log.Printf("Action log retention started (%d days)", s.retentionDays)

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		s.sweep()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Stop cancels the sweep loop.
func (s *Scheduler) Stop() {
	s.cancel()
	log.Println("Action log retention stopped")
}

func (s *Scheduler) sweep() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	result := db.DB.Unscoped().
		Where("timestamp < ?", cutoff).
		Delete(&models.ActionLog{})

	if result.Error != nil {
		log.Printf("Action log sweep failed: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("Pruned %d action log entries older than %s", result.RowsAffected, cutoff.Format(time.RFC3339))
	}
}
