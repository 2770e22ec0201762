package scheduler

import (
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/controllers"
)

// Scheduler runs sweeps on the configured cron schedule
type Scheduler struct {
	cron     *cron.Cron
	runner   *controllers.Runner
	schedule string
	logger   *logrus.Logger
	running  int32
}

// NewScheduler creates a new scheduler
func NewScheduler(runner *controllers.Runner, schedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		runner:   runner,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep job and kicks off an immediate first sweep
func (s *Scheduler) Start() error {
	s.logger.WithField("schedule", s.schedule).Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()

	go s.runSweep()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runSweep executes one sweep, skipping the tick when the previous sweep is
// still running. Searches and download monitoring can outlast the schedule
// interval.
func (s *Scheduler) runSweep() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		s.logger.Warn("Previous sweep still running, skipping this tick")
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	s.logger.Info("Running scheduled sweep")
	s.runner.Run()
}
