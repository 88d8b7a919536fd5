package scheduler

import (
	"context"
	"errors"
	"search-analytics-service/internal/contextkeys"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpire struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeExpire) Execute(ctx context.Context, olderThan time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, olderThan)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	return 2, f.err
}

func (f *fakeExpire) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var noop = contextkeys.LoggerFromContext(context.Background())

func TestNewPendingExpiryScheduler_Validates(t *testing.T) {
	_, err := NewPendingExpiryScheduler(ExpiryConfig{Schedule: "not a cron", PendingTTL: time.Minute}, &fakeExpire{}, noop)
	assert.Error(t, err)

	_, err = NewPendingExpiryScheduler(ExpiryConfig{Schedule: "@every 1m"}, &fakeExpire{}, noop)
	assert.Error(t, err)
}

func TestRunOnce_UsesTTL(t *testing.T) {
	uc := &fakeExpire{}
	s, err := NewPendingExpiryScheduler(ExpiryConfig{Schedule: "*/5 * * * *", PendingTTL: 15 * time.Minute}, uc, noop)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	s.runOnce(context.Background())

	require.Len(t, uc.calls, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 45, 0, 0, time.UTC), uc.calls[0])
}

func TestRunOnce_SkipsAfterShutdown(t *testing.T) {
	uc := &fakeExpire{}
	s, err := NewPendingExpiryScheduler(ExpiryConfig{Schedule: "@every 1s", PendingTTL: time.Minute}, uc, noop)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.runOnce(ctx)
	assert.Zero(t, uc.count())
}

func TestStart_RunsOnScheduleAndStops(t *testing.T) {
	uc := &fakeExpire{}
	s, err := NewPendingExpiryScheduler(ExpiryConfig{Schedule: "@every 1s", PendingTTL: time.Minute}, uc, noop)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return uc.count() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.NoError(t, s.Close())
}
