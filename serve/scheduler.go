// Package serve keeps bot scripts running: a cron scheduler that emits
// events into an interpreter, and a Host that wires it to persistent
// storage and blocks until shutdown.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/everydev1618/botlang/dsl"
)

// Emitter delivers an event to the loaded bots. *dsl.Interpreter
// implements it.
type Emitter interface {
	EmitEvent(ctx context.Context, name string, input any, vars map[string]any) *dsl.Result
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, name string, input any, vars map[string]any) *dsl.Result

// EmitEvent calls f.
func (f EmitterFunc) EmitEvent(ctx context.Context, name string, input any, vars map[string]any) *dsl.Result {
	return f(ctx, name, input, vars)
}

// Scheduler runs cron jobs that emit events.
// It implements dsl.SchedulerBackend.
type Scheduler struct {
	c       *cron.Cron
	emitter Emitter
	persist func(job dsl.ScheduledJob) error
	remove  func(name string) error

	mu      sync.Mutex
	jobs    []dsl.ScheduledJob
	entries map[string]cron.EntryID // job name → cron entry ID
}

var _ dsl.SchedulerBackend = (*Scheduler)(nil)

// NewScheduler creates a Scheduler. The persist and remove callbacks are
// called after successfully adding/removing a job so it can be saved to
// permanent storage. Either may be nil if persistence is not needed.
func NewScheduler(
	emitter Emitter,
	persist func(job dsl.ScheduledJob) error,
	remove func(name string) error,
) *Scheduler {
	return &Scheduler{
		c:       cron.New(),
		emitter: emitter,
		persist: persist,
		remove:  remove,
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins the cron runner and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.c.Start()
	slog.Info("scheduler started", "jobs", len(s.ListJobs()))
	<-ctx.Done()
	<-s.c.Stop().Done()
	slog.Info("scheduler stopped")
}

// AddJob adds a job to the cron runner and persists it.
// If a job with the same name already exists it is replaced.
func (s *Scheduler) AddJob(job dsl.ScheduledJob) error {
	return s.addJob(job, true)
}

func (s *Scheduler) addJob(job dsl.ScheduledJob, persist bool) error {
	if job.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if job.Event == "" {
		return fmt.Errorf("schedule %q: event is required", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Parse before touching the existing entry so a bad update keeps the
	// old schedule running.
	sched, err := cron.ParseStandard(job.Cron)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Cron, err)
	}
	var entryID cron.EntryID
	if job.Enabled {
		entryID = s.c.Schedule(sched, cron.FuncJob(s.makeFunc(job)))
	}

	if id, ok := s.entries[job.Name]; ok {
		s.c.Remove(id)
		delete(s.entries, job.Name)
	}
	s.jobs = removeJobByName(s.jobs, job.Name)

	if job.Enabled {
		s.entries[job.Name] = entryID
	}
	// Disabled jobs are kept so they can be re-enabled later.
	s.jobs = append(s.jobs, job)

	if persist && s.persist != nil {
		if err := s.persist(job); err != nil {
			slog.Warn("scheduler: persist job failed", "name", job.Name, "error", err)
		}
	}

	slog.Info("scheduler: job added", "name", job.Name, "cron", job.Cron, "event", job.Event, "enabled", job.Enabled)
	return nil
}

// RemoveJob removes a job from the cron runner and calls the remove callback.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		// May exist as a disabled job (no cron entry).
		if _, found := findJob(s.jobs, name); !found {
			return fmt.Errorf("schedule %q not found", name)
		}
	} else {
		s.c.Remove(id)
		delete(s.entries, name)
	}

	s.jobs = removeJobByName(s.jobs, name)

	if s.remove != nil {
		if err := s.remove(name); err != nil {
			slog.Warn("scheduler: remove job from store failed", "name", name, "error", err)
		}
	}

	slog.Info("scheduler: job removed", "name", name)
	return nil
}

// ListJobs returns a snapshot of all current jobs.
func (s *Scheduler) ListJobs() []dsl.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dsl.ScheduledJob, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Fire emits a job's event immediately, whether or not the job is enabled.
func (s *Scheduler) Fire(ctx context.Context, name string) (*dsl.Result, error) {
	s.mu.Lock()
	job, ok := findJob(s.jobs, name)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("schedule %q not found", name)
	}
	return s.fire(ctx, job), nil
}

// makeFunc returns the cron callback for a job.
func (s *Scheduler) makeFunc(job dsl.ScheduledJob) func() {
	return func() {
		s.fire(context.Background(), job)
	}
}

func (s *Scheduler) fire(ctx context.Context, job dsl.ScheduledJob) *dsl.Result {
	slog.Info("scheduler: firing job", "name", job.Name, "event", job.Event)
	res := s.emitter.EmitEvent(ctx, job.Event, job.Input, map[string]any{"schedule": job.Name})
	if !res.OK() {
		slog.Warn("scheduler: job run had errors", "name", job.Name, "event", job.Event, "run_id", res.RunID, "errors", res.Errors)
	}
	return res
}

func findJob(jobs []dsl.ScheduledJob, name string) (dsl.ScheduledJob, bool) {
	for _, j := range jobs {
		if j.Name == name {
			return j, true
		}
	}
	return dsl.ScheduledJob{}, false
}

func removeJobByName(jobs []dsl.ScheduledJob, name string) []dsl.ScheduledJob {
	out := jobs[:0]
	for _, j := range jobs {
		if j.Name != name {
			out = append(out, j)
		}
	}
	return out
}
