package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"devnotes/api/internal/repository"
	"devnotes/api/internal/storage"
)

// Scheduler runs in-process maintenance: pruning audit events past their
// retention window and keeping the upload mirror in sync.
type Scheduler struct {
	cron      *cron.Cron
	events    *repository.EventRepository
	mirror    *storage.Mirror
	retention time.Duration
	log       zerolog.Logger
}

func NewScheduler(events *repository.EventRepository, mirror *storage.Mirror, retention time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		events:    events,
		mirror:    mirror,
		retention: retention,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.pruneEvents); err != nil {
		return err
	}

	if s.mirror != nil {
		if _, err := s.cron.AddFunc("0 30 * * * *", s.syncMirror); err != nil { // hourly
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	removed, err := s.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("audit prune failed")
		return
	}
	s.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("audit events pruned")
}

func (s *Scheduler) syncMirror() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.mirror.SyncAll(ctx); err != nil {
		s.log.Error().Err(err).Msg("mirror sync failed")
	}
}
