package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Recomputer rebuilds the benchmark snapshot from the current dataset.
type Recomputer interface {
	Recompute() error
}

// Scheduler manages periodic benchmark recomputes. A startup run warms the
// snapshot before the first tick; the job mutex keeps manual and scheduled
// runs from overlapping.
type Scheduler struct {
	store        Recomputer
	logger       *logrus.Logger
	interval     time.Duration
	stopChan     chan struct{}
	wg           sync.WaitGroup
	jobMutex     sync.Mutex
	isStartupRun bool
}

// NewScheduler creates a new scheduler
func NewScheduler(store Recomputer, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		store:        store,
		logger:       logger,
		interval:     interval,
		stopChan:     make(chan struct{}),
		isStartupRun: true,
	}
}

// Start begins the scheduled recomputes
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// runScheduler handles the startup run and the periodic ticks
func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Run the startup recompute in a separate goroutine so ticks are not
	// delayed behind a slow first build.
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup benchmark recompute")
		s.recompute()
		s.isStartupRun = false
		s.logger.Info("Startup benchmark recompute completed")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.executeScheduledRecompute()
		}
	}
}

// executeScheduledRecompute runs one scheduled recompute
func (s *Scheduler) executeScheduledRecompute() {
	// Skip if the startup run is still in progress
	if s.isStartupRun {
		s.logger.Debug("Skipping scheduled recompute while startup is in progress")
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.Info("Starting scheduled benchmark recompute")
	s.recompute()
	s.logger.Info("Completed scheduled benchmark recompute")
}

// RunNow triggers an immediate recompute, serialized against scheduled runs.
func (s *Scheduler) RunNow() error {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()
	return s.store.Recompute()
}

func (s *Scheduler) recompute() {
	if err := s.store.Recompute(); err != nil {
		s.logger.WithError(err).Error("Benchmark recompute failed")
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
