package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/unseen-britain/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs periodic housekeeping jobs.
type Scheduler struct {
	cron     *cron.Cron
	sessions services.SessionStore
	timeout  time.Duration
}

// NewScheduler creates a scheduler that purges expired sessions on sweepSpec
// (standard cron syntax or descriptors such as "@every 15m").
func NewScheduler(sessions services.SessionStore, sweepSpec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		timeout:  30 * time.Second,
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.sweepSessions); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", sweepSpec, err)
	}
	return s, nil
}

// Run starts the scheduler in the background.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler")
}

// sweepSessions deletes expired sessions.
func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to purge expired sessions")
		return
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("Scheduler: purged expired sessions")
	}
}
