package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrConfigurationConflict is fatal at startup: the run loop needs exactly one
// scheduling mode.
var ErrConfigurationConflict = errors.New("exactly one of interval and calendar must be configured")

// safetyInterval is used when a calendar expression cannot be parsed or
// produces no future occurrence. Firing every minute beats stalling forever.
const safetyInterval = 60 * time.Second

// Scheduler computes the wait until the next reconciliation pass and drives
// the run loop. Interval mode waits a fixed duration between passes; calendar
// mode waits until the next occurrence of a six-field cron expression,
// recomputed from the current time at every wait so clock adjustments and
// process suspensions never queue up missed fires.
type Scheduler struct {
	interval   time.Duration
	calendar   cron.Schedule
	runOnStart bool
}

func New(interval time.Duration, expression string, runOnStart bool) (*Scheduler, error) {
	hasInterval := interval > 0
	hasCalendar := expression != ""
	if hasInterval == hasCalendar {
		return nil, ErrConfigurationConflict
	}

	s := &Scheduler{interval: interval, runOnStart: runOnStart}
	if hasCalendar {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		sched, err := parser.Parse(expression)
		if err != nil {
			slog.Warn("Invalid calendar expression, substituting safety interval",
				"expression", expression, "fallback", safetyInterval, "error", err)
		} else {
			s.calendar = sched
		}
	}
	return s, nil
}

// Wait returns how long to sleep before the next pass, given the current time.
func (s *Scheduler) Wait(now time.Time) time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	if s.calendar == nil {
		return safetyInterval
	}
	next := s.calendar.Next(now)
	if next.IsZero() {
		return safetyInterval
	}
	return next.Sub(now)
}

// Run fires the callback on schedule until the context is canceled. The wait
// is computed after each pass completes, so passes never overlap.
func (s *Scheduler) Run(ctx context.Context, fire func(context.Context)) {
	if s.runOnStart {
		fire(ctx)
	}

	for {
		wait := s.Wait(time.Now())
		slog.Debug("Waiting for next pass", "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Stopping schedule loop")
			return
		case <-timer.C:
			fire(ctx)
		}
	}
}
