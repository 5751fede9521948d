package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"carshare/internal/app/commands"
	bookinghandlers "carshare/internal/app/handlers/booking"
)

// Job is a named command dispatched on a cron spec.
type Job struct {
	Name    string
	Spec    string
	Command func() commands.Command
}

// Scheduler dispatches maintenance commands through the command bus.
type Scheduler struct {
	cron    *cron.Cron
	bus     commands.Bus
	logger  *slog.Logger
	timeout time.Duration
}

// New builds a scheduler running in UTC with seconds precision.
func New(bus commands.Bus, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		bus:     bus,
		logger:  logger,
		timeout: time.Minute,
	}
}

// BookingJobs expires stale requests and completes finished rentals on the
// given cron schedule.
func BookingJobs(spec string, pendingTTL time.Duration) []Job {
	return []Job{
		{
			Name:    "expire-pending-bookings",
			Spec:    spec,
			Command: func() commands.Command { return bookinghandlers.ExpirePendingBookingsCommand{TTL: pendingTTL} },
		},
		{
			Name:    "complete-finished-bookings",
			Spec:    spec,
			Command: func() commands.Command { return bookinghandlers.CompleteFinishedBookingsCommand{} },
		},
	}
}

func (s *Scheduler) Register(jobs ...Job) error {
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.Spec, s.runner(job)); err != nil {
			return errors.Wrapf(err, "register %s", job.Name)
		}
	}
	return nil
}

func (s *Scheduler) runner(job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunNow(ctx, job)
	}
}

// RunNow dispatches job once and logs the outcome.
func (s *Scheduler) RunNow(ctx context.Context, job Job) {
	start := time.Now()
	res, err := s.bus.Dispatch(ctx, job.Command())
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled job failed", slog.String("job", job.Name), slog.Any("err", err))
		return
	}
	attrs := []any{slog.String("job", job.Name), slog.Duration("duration", time.Since(start))}
	if r, ok := res.(bookinghandlers.SweepResult); ok {
		if r.Processed == 0 && r.Failed == 0 {
			return
		}
		attrs = append(attrs, slog.Int("processed", r.Processed), slog.Int("failed", r.Failed))
	}
	s.logger.InfoContext(ctx, "scheduled job finished", attrs...)
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started", slog.Int("jobs", len(s.cron.Entries())))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}
