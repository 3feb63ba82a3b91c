package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/pringgosatmoko/Creativestudio/internal/generate"
	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
)

// JobManager runs the background housekeeping loops: pruning stale presence
// rows and reminding admins about topups that sit unreviewed.
type JobManager struct {
	logger   logging.Logger
	notifier generate.Notifier
	stopCh   chan struct{}

	sweepInterval    time.Duration
	reminderInterval time.Duration
	presenceMaxAge   time.Duration
}

// NewJobManager creates a job manager.
func NewJobManager(log logging.Logger, notifier generate.Notifier) *JobManager {
	return &JobManager{
		logger:           log,
		notifier:         notifier,
		stopCh:           make(chan struct{}),
		sweepInterval:    10 * time.Minute,
		reminderInterval: time.Hour,
		presenceMaxAge:   24 * time.Hour,
	}
}

// Start launches the background loops.
func (jm *JobManager) Start() {
	jm.logger.Info("Starting background jobs")
	go jm.runPresenceSweep()
	go jm.runTopupReminder()
}

// Stop signals the loops to exit.
func (jm *JobManager) Stop() {
	jm.logger.Info("Stopping background jobs")
	close(jm.stopCh)
}

func (jm *JobManager) runPresenceSweep() {
	ticker := time.NewTicker(jm.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jm.sweepStalePresence()
		case <-jm.stopCh:
			return
		}
	}
}

// sweepStalePresence clears last-seen timestamps older than a day. Online
// status only looks at recent timestamps, so this is pure hygiene.
func (jm *JobManager) sweepStalePresence() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := db.ExecContext(ctx,
		`UPDATE members SET last_seen = NULL
		 WHERE last_seen IS NOT NULL AND last_seen < NOW() - $1::interval`,
		fmt.Sprintf("%d seconds", int(jm.presenceMaxAge.Seconds())),
	)
	if err != nil {
		jm.logger.WithField("error", err.Error()).Error("Presence sweep failed")
		return
	}
	if cleared, err := result.RowsAffected(); err == nil && cleared > 0 {
		jm.logger.WithField("cleared", cleared).Debug("Cleared stale presence timestamps")
	}
}

func (jm *JobManager) runTopupReminder() {
	ticker := time.NewTicker(jm.reminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jm.remindPendingTopups()
		case <-jm.stopCh:
			return
		}
	}
}

// remindPendingTopups nudges the admin chat when topups are waiting.
func (jm *JobManager) remindPendingTopups() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var pending int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM topup_requests WHERE status = 'pending'`,
	).Scan(&pending)
	if err != nil {
		jm.logger.WithField("error", err.Error()).Error("Pending topup count failed")
		return
	}
	if pending == 0 {
		return
	}

	jm.logger.WithField("pending", pending).Info("Topups awaiting review")
	if jm.notifier != nil {
		jm.notifier.Send("billing", fmt.Sprintf("%d topup request(s) awaiting review", pending))
	}
}
