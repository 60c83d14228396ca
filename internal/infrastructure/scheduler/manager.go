// Package scheduler runs periodic maintenance jobs with gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"kreltrack/internal/shared/biztime"
	"kreltrack/internal/shared/logger"
)

// BatchJob processes one batch per call and returns how many items it handled.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// Manager owns a single gocron scheduler for the process.
type Manager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewManager creates a scheduler that reads cron expressions in the business timezone.
func NewManager(log logger.Interface) (*Manager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: scheduler,
		logger:    log.Named("scheduler"),
	}, nil
}

// RegisterLookupRefresh reloads the lookup tables every interval so edits
// made by other processes show up. A non-positive interval registers nothing.
func (m *Manager) RegisterLookupRefresh(job BatchJob, interval time.Duration) error {
	if interval <= 0 {
		m.logger.Infow("lookup refresh disabled")
		return nil
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			m.runBatch(ctx, "lookup-refresh", job)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("lookup", "refresh"),
		gocron.WithName("lookup-refresh"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered lookup refresh job", "interval", interval)
	return nil
}

func (m *Manager) runBatch(ctx context.Context, name string, job BatchJob) {
	startTime := time.Now()

	n, err := job.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warnw("scheduled job failed",
			"job", name,
			"processed", n,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	m.logger.Debugw("scheduled job finished",
		"job", name,
		"processed", n,
		"duration", time.Since(startTime),
	)
}

// Start starts the scheduler and all registered jobs.
func (m *Manager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs and shuts the scheduler down.
func (m *Manager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler stopped")
	return nil
}

func (m *Manager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns the registered jobs for inspection.
func (m *Manager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
