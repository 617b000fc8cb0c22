package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/robfig/cron/v3"
)

// Sweeper drops in-memory state idle for longer than the given duration.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// Janitor runs the periodic cleanup jobs: expired sessions and reset
// tokens, idle task views and stale rate-limit buckets.
type Janitor struct {
	cron     *cron.Cron
	sessions domain.AuthSessionRepository
	resets   domain.PasswordResetRepository
	views    Sweeper
	limiter  *TokenBucket
	idle     time.Duration
	now      func() time.Time
}

// NewJanitor creates a Janitor. views and limiter may be nil.
func NewJanitor(sessions domain.AuthSessionRepository, resets domain.PasswordResetRepository, views Sweeper, limiter *TokenBucket, idle time.Duration) *Janitor {
	return &Janitor{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sessions: sessions,
		resets:   resets,
		views:    views,
		limiter:  limiter,
		idle:     idle,
		now:      time.Now,
	}
}

// Schedule registers the cleanup run under a cron spec such as "@every 10m".
func (j *Janitor) Schedule(spec string) error {
	if _, err := j.cron.AddFunc(spec, func() { j.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule janitor %q: %w", spec, err)
	}
	return nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop waits for a running cleanup to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// Report counts what one cleanup run removed.
type Report struct {
	Sessions int64
	Resets   int64
	Views    int
	Buckets  int
}

// RunOnce performs a single cleanup pass. Failures are logged and do not
// stop the remaining jobs.
func (j *Janitor) RunOnce(ctx context.Context) Report {
	var r Report
	now := j.now().UTC()

	n, err := j.sessions.DeleteExpired(ctx, now)
	if err != nil {
		slog.Error("purge expired sessions", "error", err)
	}
	r.Sessions = n

	n, err = j.resets.DeleteExpired(ctx, now)
	if err != nil {
		slog.Error("purge expired password resets", "error", err)
	}
	r.Resets = n

	if j.views != nil {
		r.Views = j.views.Sweep(j.idle)
	}
	if j.limiter != nil {
		r.Buckets = j.limiter.Prune(j.idle)
	}

	slog.Debug("janitor run", "sessions", r.Sessions, "resets", r.Resets, "views", r.Views, "buckets", r.Buckets)
	return r
}
