package monitoring

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isdelr/unseen-britain/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepCounter struct {
	calls atomic.Int32
}

func (s *sweepCounter) Create(ctx context.Context, userID int64, ttl time.Duration) (models.Session, error) {
	return models.Session{}, nil
}
func (s *sweepCounter) Get(ctx context.Context, id string) (models.Session, error) {
	return models.Session{}, nil
}
func (s *sweepCounter) Delete(ctx context.Context, id string) error { return nil }
func (s *sweepCounter) DeleteExpired(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 3, nil
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(&sweepCounter{}, "every now and then")
	assert.Error(t, err)
}

func TestSweepSessions(t *testing.T) {
	store := &sweepCounter{}
	s, err := NewScheduler(store, "@every 1h")
	require.NoError(t, err)

	s.sweepSessions()
	assert.EqualValues(t, 1, store.calls.Load())
}

func TestSchedulerRunsJob(t *testing.T) {
	store := &sweepCounter{}
	s, err := NewScheduler(store, "@every 1s")
	require.NoError(t, err)

	s.Run()
	defer s.Stop()
	assert.Eventually(t, func() bool { return store.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
