// Package scheduler runs the morning and evening notification passes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/medadvisor/advisor-api/internal/dates"
	"github.com/medadvisor/advisor-api/internal/kv"
	"github.com/medadvisor/advisor-api/internal/services"
	"github.com/robfig/cron/v3"
)

const (
	OffsetToday    = 0
	OffsetTomorrow = 1

	leaseTTL = 6 * time.Hour
)

// Notifier runs one notification pass
type Notifier interface {
	TargetDate(offsetDays int) dates.Date
	RunDailyPass(ctx context.Context, offsetDays int) (*services.PassResult, error)
}

// Options configures a Scheduler
type Options struct {
	Location    *time.Location
	MorningSpec string
	EveningSpec string
	PassTimeout time.Duration
}

// Scheduler fires notification passes. A lease per (date, offset) keeps
// replicas from sending the same pass twice.
type Scheduler struct {
	notifier Notifier
	lease    kv.Lease
	holder   string
	timeout  time.Duration
	cron     *cron.Cron
}

// New creates a Scheduler with the morning (today) and evening (tomorrow) jobs registered
func New(notifier Notifier, lease kv.Lease, opts Options) (*Scheduler, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		notifier: notifier,
		lease:    lease,
		holder:   uuid.NewString(),
		timeout:  opts.PassTimeout,
		cron:     cron.New(cron.WithLocation(loc)),
	}

	if _, err := s.cron.AddFunc(opts.MorningSpec, s.job(OffsetToday)); err != nil {
		return nil, fmt.Errorf("invalid morning schedule %q: %w", opts.MorningSpec, err)
	}
	if _, err := s.cron.AddFunc(opts.EveningSpec, s.job(OffsetTomorrow)); err != nil {
		return nil, fmt.Errorf("invalid evening schedule %q: %w", opts.EveningSpec, err)
	}
	return s, nil
}

func (s *Scheduler) job(offsetDays int) func() {
	return func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		if _, err := s.RunPass(ctx, offsetDays); err != nil {
			log.Printf("Scheduled notification pass (offset %d) failed: %v", offsetDays, err)
		}
	}
}

// RunPass runs the pass unless another holder already took it.
// It returns nil and no error when the pass was skipped.
func (s *Scheduler) RunPass(ctx context.Context, offsetDays int) (*services.PassResult, error) {
	date := s.notifier.TargetDate(offsetDays)
	name := fmt.Sprintf("notify:%s:%d", date, offsetDays)

	acquired, err := s.lease.Acquire(ctx, name, s.holder, leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	if !acquired {
		log.Printf("Notification pass %s already taken, skipping", name)
		return nil, nil
	}

	return s.notifier.RunDailyPass(ctx, offsetDays)
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and waits for running passes to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Entries reports the next run time of each job, morning first
func (s *Scheduler) Entries() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Next)
	}
	return next
}
