package backup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduler drives full backup cycles on a fixed interval, forever. One
// cycle runs to completion before the next begins; any cycle error is
// returned to the caller and ends the process.
type Scheduler struct {
	Interval time.Duration
	Target   Target
	Executor *Executor
	Uploader *Uploader
	Cleaner  *Cleaner

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time

	log zerolog.Logger
}

func NewScheduler(interval time.Duration, target Target, executor *Executor, uploader *Uploader, cleaner *Cleaner, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Interval: interval,
		Target:   target,
		Executor: executor,
		Uploader: uploader,
		Cleaner:  cleaner,
		log:      logger,
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run loops forever: cycle, then sleep the fixed interval. It returns on the
// first cycle error or when the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.Cycle(ctx); err != nil {
			return err
		}
		s.log.Info().Dur("interval", s.Interval).Msg("cycle complete, sleeping")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Interval):
		}
	}
}

// Cycle runs one backup, upload and cleanup pass. The artifact's timestamp
// token is assigned here, at cycle start.
func (s *Scheduler) Cycle(ctx context.Context) error {
	log := s.log.With().Str("cycle", uuid.NewString()).Logger()

	art := NewArtifact(s.now())
	log.Info().Str("artifact", art.Name).Str("database", s.Target.Name).Msg("starting backup cycle")

	if err := s.Executor.Backup(ctx, s.Target, art); err != nil {
		return err
	}
	if err := s.Uploader.Upload(ctx, art); err != nil {
		return err
	}
	if err := s.Cleaner.CleanLocal(ctx); err != nil {
		return err
	}
	if err := s.Cleaner.CleanRemote(ctx); err != nil {
		return err
	}

	return nil
}
