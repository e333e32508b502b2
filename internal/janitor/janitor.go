// Package janitor periodically removes expired revoked tokens and password
// reset codes.
package janitor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/trgovina/internal/store"
)

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Janitor runs the cleanup on a cron schedule.
type Janitor struct {
	DB       *sql.DB
	Schedule string
}

// RunOnce purges everything that expired before now.
func (j *Janitor) RunOnce(ctx context.Context, now time.Time) error {
	tokens, err := store.PurgeExpiredTokens(ctx, j.DB, now)
	if err != nil {
		return err
	}
	resets, err := store.PurgeExpiredResets(ctx, j.DB, now)
	if err != nil {
		return err
	}

	if tokens > 0 || resets > 0 {
		slog.Info("expired data purged", "tokens", tokens, "resets", resets)
	}
	return nil
}

// Run schedules RunOnce and blocks until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(parser))

	_, err := c.AddFunc(j.Schedule, func() {
		if err := j.RunOnce(ctx, time.Now()); err != nil {
			slog.Error("janitor run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling janitor %q: %w", j.Schedule, err)
	}

	c.Start()
	slog.Info("janitor started", "schedule", j.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
