package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tiffin-api/pkg/logging"
)

// Names of the jobs wired by the server.
const (
	JobDailyOrders       = "daily_orders"
	JobSubscriptionSweep = "subscription_expiry"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// Job binds a cron expression to a function.
type Job struct {
	Name     string
	Schedule string
	Run      JobFunc
	// Timeout bounds a single run; zero means no bound beyond the scheduler context.
	Timeout time.Duration
}

// Config controls the scheduler.
type Config struct {
	Enabled  bool
	Location *time.Location
	Jobs     []Job
}

// Scheduler runs the daily order batch and the expiry sweep on cron schedules
// evaluated in the business timezone. A job still running when its next tick
// fires is skipped.
type Scheduler struct {
	config Config
	cron   *cron.Cron

	mu       sync.Mutex
	entryIDs map[string]cron.EntryID
	runCtx   context.Context

	stopOnce sync.Once
	stopped  chan struct{}
}

func New(cfg Config) *Scheduler {
	return &Scheduler{
		config:   cfg,
		cron:     newCron(cfg),
		entryIDs: make(map[string]cron.EntryID),
		runCtx:   context.Background(),
		stopped:  make(chan struct{}),
	}
}

func newCron(cfg Config) *cron.Cron {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	options := []cron.Option{
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	}
	if cfg.Location != nil {
		options = append(options, cron.WithLocation(cfg.Location))
	}
	return cron.New(options...)
}

// Start registers every job and starts the cron loop. Jobs run with a context
// derived from ctx; cancelling ctx stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logging.Infof("Scheduler disabled by config")
		s.Stop()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runCtx = ctx
	for _, job := range s.config.Jobs {
		if err := s.register(job); err != nil {
			return err
		}
	}

	s.cron.Start()
	logging.Infof("Scheduler started with %d jobs", len(s.entryIDs))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// register must be called with s.mu held.
func (s *Scheduler) register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("scheduler job needs a name and a function")
	}
	if _, exists := s.entryIDs[job.Name]; exists {
		return fmt.Errorf("scheduler job %q registered twice", job.Name)
	}
	if job.Schedule == "" {
		return fmt.Errorf("scheduler job %q has no schedule", job.Name)
	}

	j := job
	entryID, err := s.cron.AddFunc(j.Schedule, func() {
		s.execute(j)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression for %q: %w", job.Name, err)
	}
	s.entryIDs[job.Name] = entryID
	logging.Infof("Scheduler: registered job %q (schedule=%s)", job.Name, job.Schedule)
	return nil
}

func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	started := time.Now()
	logging.Infow("scheduled job started", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		logging.Errorw("scheduled job failed", "job", job.Name, "duration", time.Since(started), "error", err)
		return
	}
	logging.Infow("scheduled job finished", "job", job.Name, "duration", time.Since(started))
}

// Stop waits for running jobs and stops the scheduler. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		defer close(s.stopped)
		if !s.config.Enabled {
			return
		}
		logging.Infof("Scheduler stopping...")
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		logging.Infof("Scheduler stopped")
	})
}

// Done returns a channel that is closed when the scheduler has fully stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}

// JobNames returns the registered job names, sorted.
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entryIDs))
	for name := range s.entryIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun reports when the named job fires next.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entryIDs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// RunNow runs the named job synchronously outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, job := range s.config.Jobs {
		if job.Name == name {
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("unknown scheduler job %q", name)
}
