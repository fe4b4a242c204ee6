package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// UsageFlusher moves buffered question usage into permanent storage.
type UsageFlusher interface {
	FlushUsage(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs of the service.
type Scheduler struct {
	scheduler *gocron.Scheduler
	flusher   UsageFlusher
	interval  time.Duration
	timeout   time.Duration
}

func New(flusher UsageFlusher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		flusher:   flusher,
		interval:  interval,
		timeout:   interval,
	}
}

// Start schedules the usage flush and returns immediately.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.flushUsage)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Printf("Scheduler started, flushing question usage every %s", s.interval)
	return nil
}

// Stop halts the jobs and runs one last flush so buffered counters are not left behind.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.flushUsage()
}

func (s *Scheduler) flushUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.flusher.FlushUsage(ctx)
	if err != nil {
		log.Printf("Error flushing question usage: %v", err)
	}
	if n > 0 {
		log.Printf("Flushed usage for %d questions", n)
	}
}
