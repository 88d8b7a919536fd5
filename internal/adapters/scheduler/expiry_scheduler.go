package scheduler

import (
	"context"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/port"
	"search-analytics-service/internal/core/port/usecases_port"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ExpiryConfig configures the pending booking sweeper.
type ExpiryConfig struct {
	Schedule   string        // cron expression, "@every 1m" style descriptors allowed
	PendingTTL time.Duration // pending bookings older than this get cancelled
	JobTimeout time.Duration
}

// PendingExpiryScheduler cancels stale pending holds on a cron schedule.
type PendingExpiryScheduler struct {
	cfg     ExpiryConfig
	useCase usecases_port.ExpirePendingBookingsUseCase
	cron    *cron.Cron
	logger  port.LoggerPort
	now     func() time.Time
}

var _ port.EventListenerPort = (*PendingExpiryScheduler)(nil)

func NewPendingExpiryScheduler(cfg ExpiryConfig, useCase usecases_port.ExpirePendingBookingsUseCase, logger port.LoggerPort) (*PendingExpiryScheduler, error) {
	if cfg.PendingTTL <= 0 {
		return nil, fmt.Errorf("scheduler: pending TTL must be positive")
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron expression %q: %w", cfg.Schedule, err)
	}

	schedulerLogger := logger.WithFields(port.Fields{"component": "PendingExpiryScheduler"})
	return &PendingExpiryScheduler{
		cfg:     cfg,
		useCase: useCase,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{schedulerLogger})),
		),
		logger: schedulerLogger,
		now:    time.Now,
	}, nil
}

// Start registers the job and blocks until ctx is cancelled.
func (s *PendingExpiryScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduler: add job: %w", err)
	}
	s.logger.Info("Pending booking expiry scheduled", port.Fields{
		"schedule":    s.cfg.Schedule,
		"pending_ttl": s.cfg.PendingTTL.String(),
	})
	s.cron.Start()

	<-ctx.Done()
	return nil
}

func (s *PendingExpiryScheduler) runOnce(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	runID := uuid.NewString()
	logger := s.logger.WithFields(port.Fields{"trace_id": runID})
	ctx, cancel := context.WithTimeout(contextkeys.ContextWithLogger(parent, logger), s.cfg.JobTimeout)
	defer cancel()
	ctx = contextkeys.ContextWithTraceID(ctx, runID)

	olderThan := s.now().UTC().Add(-s.cfg.PendingTTL)
	expired, err := s.useCase.Execute(ctx, olderThan)
	if err != nil {
		logger.Error("Pending booking expiry failed", err, port.Fields{"expired_before_error": expired})
		return
	}
	if expired > 0 {
		logger.Info("Pending bookings expired", port.Fields{"count": expired})
	}
}

// Close stops the schedule and waits for a running job.
func (s *PendingExpiryScheduler) Close() error {
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts port.LoggerPort to cron.Logger.
type cronLogger struct {
	logger port.LoggerPort
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, err, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) port.Fields {
	fields := make(port.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
