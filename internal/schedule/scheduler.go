package schedule

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Publisher receives an event after each generation run so connected
// clients can refresh their task lists.
type Publisher interface {
	Publish(eventType string, data any)
}

// Scheduler runs the generator at the configured reset hour every day.
type Scheduler struct {
	gen       *Generator
	events    Publisher
	resetHour int
	logger    *slog.Logger
	cron      *cron.Cron
}

func NewScheduler(gen *Generator, events Publisher, resetHour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		gen:       gen,
		events:    events,
		resetHour: resetHour,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start registers the daily job and runs one catch-up generation
// immediately, so a server restarted mid-day still has today's
// instances.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("0 %d * * *", s.resetHour)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("schedule daily reset: %w", err)
	}
	s.cron.Start()
	s.logger.Info("daily reset scheduled", "cron", spec)

	s.run()
	return nil
}

// Stop halts the cron runner. Jobs already in flight finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("daily reset scheduler stopped")
}

func (s *Scheduler) run() {
	created, err := s.gen.Run()
	if err != nil {
		s.logger.Error("daily reset failed", "error", err)
		return
	}
	if s.events != nil {
		s.events.Publish("daily_reset", map[string]any{"created": created})
	}
}
