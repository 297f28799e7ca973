// Package jobs runs the periodic housekeeping of the site.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	SessionSweepSchedule = "@every 15m"
	LimiterSweepSchedule = "@every 1m"

	// clients idle this long lose their rate-limit bucket
	LimiterIdle = 3 * time.Minute

	sweepTimeout = 30 * time.Second
)

// SessionStore deletes sessions past their expiry
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Limiter forgets clients that have not been seen for maxIdle
type Limiter interface {
	Sweep(maxIdle time.Duration) int
}

// Sweeper removes expired sessions and idle rate-limit buckets
type Sweeper struct {
	sessions SessionStore
	limiter  Limiter
	log      *logrus.Logger
	now      func() time.Time
}

func NewSweeper(sessions SessionStore, limiter Limiter, log *logrus.Logger) *Sweeper {
	return &Sweeper{sessions: sessions, limiter: limiter, log: log, now: time.Now}
}

// Start schedules both sweeps and starts the scheduler. Stop the returned
// scheduler on shutdown.
func (s *Sweeper) Start() (*cron.Cron, error) {
	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(s.log)),
		cron.WithChain(cron.Recover(cron.PrintfLogger(s.log)), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if _, err := c.AddFunc(SessionSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.SweepSessions(ctx); err != nil {
			s.log.Errorf("Session sweep failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	if _, err := c.AddFunc(LimiterSweepSchedule, func() {
		s.SweepLimiter()
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule limiter sweep: %w", err)
	}

	c.Start()
	s.log.Info("Housekeeping jobs started")
	return c, nil
}

// SweepSessions deletes expired session rows
func (s *Sweeper) SweepSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Infof("Removed %d expired sessions", n)
	}
	return n, nil
}

// SweepLimiter drops idle rate-limit buckets
func (s *Sweeper) SweepLimiter() int {
	n := s.limiter.Sweep(LimiterIdle)
	if n > 0 {
		s.log.Debugf("Removed %d idle rate-limit buckets", n)
	}
	return n
}
