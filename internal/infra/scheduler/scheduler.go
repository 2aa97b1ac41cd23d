package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Handler is one recurring job's body. Handlers are expected to honor the
// context for I/O but are never forcibly cancelled; a hung handler blocks its
// own future ticks (the no-overlap guard skips them) until process restart.
type Handler func(ctx context.Context) error

var ErrJobNotFound = errors.New("scheduled job not found")
var ErrDuplicateJob = errors.New("a job with this name is already registered")
var ErrAlreadyStarted = errors.New("scheduler already started")

type job struct {
	name     string
	interval time.Duration
	handler  Handler

	running atomic.Bool
	mu      sync.Mutex
	lastRun time.Time
}

// JobStatus is the observable state of one registered job.
type JobStatus struct {
	Name     string
	Interval time.Duration
	LastRun  time.Time // zero when the job has never run
	NextRun  time.Time
	Running  bool
}

// Scheduler runs named recurring jobs on independent intervals. Jobs are not
// persisted: after a restart every job fires once immediately, which re-runs
// any interval a downed process missed.
type Scheduler struct {
	cronEngine *cron.Cron
	logger     *logrus.Logger
	now        func() time.Time

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	started bool
}

func New(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(),
		logger:     logger,
		now:        time.Now,
		jobs:       make(map[string]*job),
	}
}

// Register adds a named job. All registration must happen before Start.
func (s *Scheduler) Register(name string, interval time.Duration, handler Handler) error {
	if interval <= 0 {
		return fmt.Errorf("job %q: interval must be positive", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if _, exists := s.jobs[name]; exists {
		return ErrDuplicateJob
	}
	s.jobs[name] = &job{name: name, interval: interval, handler: handler}
	s.order = append(s.order, name)
	return nil
}

// Start runs every registered job once synchronously, then arms a periodic
// timer per job. The immediate first run is the cold-start self-heal: a fresh
// process catches up on anything due instead of waiting a full interval.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	jobs := make([]*job, 0, len(s.order))
	for _, name := range s.order {
		jobs = append(jobs, s.jobs[name])
	}
	s.mu.Unlock()

	s.logger.Infof("Starting scheduler with %d jobs", len(jobs))
	for _, j := range jobs {
		s.execute(j)
		spec := fmt.Sprintf("@every %s", j.interval)
		jb := j
		if _, err := s.cronEngine.AddFunc(spec, func() { s.execute(jb) }); err != nil {
			return fmt.Errorf("could not schedule job %q: %w", j.name, err)
		}
		s.logger.Infof("Job %q scheduled every %s", j.name, j.interval)
	}
	s.cronEngine.Start()
	return nil
}

// Stop cancels future ticks and waits for in-flight runs to finish. Runs in
// progress are not interrupted.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob triggers a job by name, synchronously. If the job is already
// executing the trigger is a skip, not a queue, exactly as with an
// overlapping timer tick.
func (s *Scheduler) RunJob(name string) error {
	s.mu.Lock()
	j, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return ErrJobNotFound
	}
	s.execute(j)
	return nil
}

// execute runs one job guarded against overlap. A handler error or panic is
// logged and swallowed so one misbehaving job cannot kill the scheduler or
// its own future ticks.
func (s *Scheduler) execute(j *job) {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warnf("Job %q is still running, skipping this invocation", j.name)
		return
	}
	defer j.running.Store(false)

	started := s.now()
	j.mu.Lock()
	j.lastRun = started
	j.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Job %q panicked at %s: %v\n%s", j.name, started.Format(time.RFC3339), r, debug.Stack())
		}
	}()

	s.logger.Debugf("Job %q starting", j.name)
	if err := j.handler(context.Background()); err != nil {
		s.logger.Errorf("Job %q failed at %s: %v", j.name, started.Format(time.RFC3339), err)
		return
	}
	s.logger.Debugf("Job %q finished in %s", j.name, time.Since(started))
}

// Status reports every job's last and projected next run, in registration
// order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	statuses := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		j.mu.Lock()
		lastRun := j.lastRun
		j.mu.Unlock()

		nextRun := now.Add(j.interval)
		if !lastRun.IsZero() {
			nextRun = lastRun.Add(j.interval)
		}
		statuses = append(statuses, JobStatus{
			Name:     j.name,
			Interval: j.interval,
			LastRun:  lastRun,
			NextRun:  nextRun,
			Running:  j.running.Load(),
		})
	}
	return statuses
}
