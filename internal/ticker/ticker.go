// Package ticker owns the one periodic task of the application: re-sampling
// the wall clock on a cron schedule and fanning the sample out to
// subscribers. Extra jobs (e.g. snapshot capture) can ride on the same
// scheduler so a single Stop releases everything.
package ticker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "alos/internal/log"
	"alos/internal/schedule"
)

var ErrStarted = errors.New("ticker: already started")

// Job is an extra scheduled task. It receives the sampler's run context.
type Job func(ctx context.Context) error

type namedJob struct {
	name string
	spec string
	fn   Job
}

// Sampler re-samples clock on spec and notifies subscribers.
type Sampler struct {
	clock schedule.Clock
	spec  string

	mu      sync.RWMutex
	last    time.Time
	subs    []func(time.Time)
	jobs    []namedJob
	cron    *cron.Cron
	cancel  context.CancelFunc
	started bool
	stopped bool
}

// New creates a Sampler. spec is a standard 5-field cron expression;
// "* * * * *" samples at the top of every minute.
func New(clock schedule.Clock, spec string) *Sampler {
	return &Sampler{clock: clock, spec: spec, last: clock.Instant()}
}

// OnTick registers fn to run after every sample, including the initial one
// taken by Start. Subscribers run on the scheduler goroutine and must not
// block.
func (s *Sampler) OnTick(fn func(time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// AddJob schedules fn on its own cron spec. Must be called before Start.
func (s *Sampler) AddJob(name, spec string, fn Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("ticker: job %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.jobs = append(s.jobs, namedJob{name: name, spec: spec, fn: fn})
	return nil
}

// Start takes an initial sample and begins the schedule. The schedule is
// released by Stop or when ctx is cancelled, whichever comes first.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}

	c := cron.New(
		cron.WithLocation(s.clock.Location()),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := c.AddFunc(s.spec, func() { s.Sample() }); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("ticker: refresh spec %q: %w", s.spec, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, j := range s.jobs {
		j := j
		if _, err := c.AddFunc(j.spec, func() {
			started := time.Now()
			if err := j.fn(runCtx); err != nil {
				appLog.Error("scheduled job failed", err, "job", j.name)
				return
			}
			appLog.Debug("scheduled job done", "job", j.name, "took", time.Since(started))
		}); err != nil {
			cancel()
			s.mu.Unlock()
			return fmt.Errorf("ticker: job %s: %w", j.name, err)
		}
	}

	s.cron = c
	s.cancel = cancel
	s.started = true
	s.mu.Unlock()

	s.Sample()
	c.Start()
	appLog.Info("clock sampler started", "refresh", s.spec, "timezone", s.clock.Zone, "jobs", len(s.jobs))

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for running jobs. Safe to call more
// than once and before Start.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	done := c.Stop()
	cancel()
	<-done.Done()
	appLog.Info("clock sampler stopped")
}

// Sample reads the clock now, stores the instant and notifies subscribers.
func (s *Sampler) Sample() time.Time {
	now := s.clock.Instant()

	s.mu.Lock()
	s.last = now
	subs := append([]func(time.Time){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(now)
	}
	return now
}

// Now returns the last sampled instant.
func (s *Sampler) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Clock returns the clock the sampler reads.
func (s *Sampler) Clock() schedule.Clock {
	return s.clock
}

// cronLogger routes cron's internal logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
