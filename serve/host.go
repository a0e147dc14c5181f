package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/everydev1618/botlang/dsl"
	"github.com/everydev1618/botlang/memory"
	"github.com/everydev1618/botlang/tools"
)

// Config holds host configuration.
type Config struct {
	// Store persists schedules created by scripts. Nil keeps them in memory.
	Store memory.Store
	// Jobs are seeded at startup. Stored jobs with the same name win.
	Jobs []dsl.ScheduledJob
}

// Host keeps loaded bots running: it restores schedules, exposes the
// schedule.* tools to scripts and fires events until shut down.
type Host struct {
	emitter   Emitter
	registry  *tools.Tools
	scheduler *Scheduler
	cfg       Config
	startedAt time.Time
}

// NewHost creates a Host. Schedule tools are registered on registry when
// the host starts.
func NewHost(emitter Emitter, registry *tools.Tools, cfg Config) *Host {
	h := &Host{
		emitter:  emitter,
		registry: registry,
		cfg:      cfg,
	}
	var persist func(dsl.ScheduledJob) error
	var remove func(string) error
	if cfg.Store != nil {
		persist = cfg.Store.SaveJob
		remove = cfg.Store.DeleteJob
	}
	h.scheduler = NewScheduler(emitter, persist, remove)
	return h
}

// Scheduler returns the host's scheduler.
func (h *Host) Scheduler() *Scheduler {
	return h.scheduler
}

// Uptime reports how long the host has been running.
func (h *Host) Uptime() time.Duration {
	if h.startedAt.IsZero() {
		return 0
	}
	return time.Since(h.startedAt)
}

// Start restores schedules, registers the schedule tools and runs the
// scheduler. It blocks until ctx is cancelled.
func (h *Host) Start(ctx context.Context) error {
	h.startedAt = time.Now()
	if err := h.setup(); err != nil {
		return err
	}

	slog.Info("botlang serve started", "schedules", len(h.scheduler.ListJobs()))
	h.scheduler.Start(ctx)
	slog.Info("shutting down host", "uptime", h.Uptime().Round(time.Second))
	return nil
}

func (h *Host) setup() error {
	for _, job := range h.cfg.Jobs {
		if err := h.scheduler.addJob(job, false); err != nil {
			return fmt.Errorf("configured schedule: %w", err)
		}
	}

	if h.cfg.Store != nil {
		stored, err := h.cfg.Store.ListJobs()
		if err != nil {
			return fmt.Errorf("restore schedules: %w", err)
		}
		for _, job := range stored {
			if err := h.scheduler.addJob(job, false); err != nil {
				slog.Warn("skipping stored schedule", "name", job.Name, "error", err)
			}
		}
		if len(stored) > 0 {
			slog.Info("restored schedules", "count", len(stored))
		}
	}

	if h.registry != nil {
		err := dsl.RegisterSchedulerTools(h.registry, h.scheduler)
		if err != nil && !errors.Is(err, tools.ErrToolAlreadyRegistered) {
			return fmt.Errorf("register schedule tools: %w", err)
		}
	}
	return nil
}
