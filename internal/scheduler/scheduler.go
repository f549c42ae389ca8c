package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/divecrm/divecrm/internal/config"
	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/model"
)

// Dispatcher is the slice of the dispatch service the scheduler drives.
type Dispatcher interface {
	Due(ctx context.Context, kind model.EmailKind, cutoff time.Time) ([]*model.Customer, error)
	DispatchOne(ctx context.Context, c *model.Customer, kind model.EmailKind, now time.Time) error
}

// TickResult summarizes one scheduler pass.
type TickResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Scheduler periodically finds customers whose follow-up emails are due
// and hands them to the dispatcher. Eligibility is calendar-day based in
// the configured timezone: a customer who visited N or more calendar days
// ago is due for the kind with offset N, regardless of the time of day.
//
// The loop is only a clock; all tick logic lives in RunTick so tests can
// drive it with fixed times and no goroutines.
type Scheduler struct {
	dispatcher Dispatcher
	lease      *Lease
	loc        *time.Location
	interval   time.Duration
	offsets    map[model.EmailKind]int
	log        *logger.Logger

	stop chan struct{}
	done chan struct{}
}

// New creates a Scheduler. A nil lease means this process always ticks,
// which is the single-instance deployment (and the test) mode.
func New(d Dispatcher, lease *Lease, cfg config.SchedulerConfig, log *logger.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return &Scheduler{
		dispatcher: d,
		lease:      lease,
		loc:        loc,
		interval:   cfg.Interval,
		offsets: map[model.EmailKind]int{
			model.KindFirstFollowUp:  cfg.Offsets.FirstDays,
			model.KindSecondFollowUp: cfg.Offsets.SecondDays,
		},
		log:  log.WithComponent("scheduler"),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

// Start launches the tick loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().
		Dur("interval", s.interval).
		Str("timezone", s.loc.String()).
		Msg("scheduler started")
	go s.run(ctx)
}

// Stop halts the loop and releases the leader lease. It blocks until the
// in-flight tick, if any, has finished.
func (s *Scheduler) Stop(ctx context.Context) {
	close(s.stop)
	<-s.done
	if s.lease != nil {
		if err := s.lease.Release(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to release scheduler lease")
		}
	}
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.lease != nil {
				leader, err := s.lease.TryAcquire(ctx)
				if err != nil {
					s.log.Error().Err(err).Msg("leader lease check failed")
					continue
				}
				if !leader {
					continue
				}
			}
			res := s.RunTick(ctx, now)
			if res.Sent > 0 || res.Failed > 0 {
				s.log.Info().
					Int("sent", res.Sent).
					Int("failed", res.Failed).
					Int("skipped", res.Skipped).
					Msg("scheduler tick complete")
			}
		}
	}
}

// RunTick evaluates eligibility for every scheduled kind as of now and
// dispatches whatever is due. Kinds are evaluated in order, and a customer
// receives at most one email per tick: a customer due for both follow-ups
// gets the first one now and the second on a later tick. One customer's
// failure never blocks the rest.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) TickResult {
	var res TickResult
	handled := make(map[string]bool)

	for _, kind := range model.ScheduledKinds {
		cutoff := s.cutoff(now, s.offsets[kind])
		due, err := s.dispatcher.Due(ctx, kind, cutoff)
		if err != nil {
			s.log.Error().Err(err).Str("kind", string(kind)).Msg("eligibility query failed")
			continue
		}
		for _, c := range due {
			if handled[c.ID] {
				res.Skipped++
				continue
			}
			handled[c.ID] = true
			if err := s.dispatcher.DispatchOne(ctx, c, kind, now); err != nil {
				res.Failed++
				continue
			}
			res.Sent++
		}
	}
	return res
}

// cutoff returns the latest visit instant eligible for an offset of N
// calendar days: the end of the day N days before now, in the scheduler's
// timezone.
func (s *Scheduler) cutoff(now time.Time, offsetDays int) time.Time {
	y, m, d := now.In(s.loc).Date()
	return time.Date(y, m, d-offsetDays+1, 0, 0, 0, 0, s.loc).Add(-time.Nanosecond)
}
