package dsl

import (
	"context"
	"errors"
	"fmt"

	"github.com/everydev1618/botlang/tools"
)

// SchedulerBackend is the interface that serve.Scheduler implements.
// Defined here so dsl/ does not import serve/.
type SchedulerBackend interface {
	AddJob(job ScheduledJob) error
	RemoveJob(name string) error
	ListJobs() []ScheduledJob
}

// ScheduledJob emits an event on a cron schedule.
type ScheduledJob struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Cron    string `json:"cron" yaml:"cron" toml:"cron"`    // standard 5-field cron expression
	Event   string `json:"event" yaml:"event" toml:"event"` // event emitted on each tick
	Input   any    `json:"input,omitempty" yaml:"input" toml:"input"`
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
}

func (j ScheduledJob) toValue() map[string]any {
	return map[string]any{
		"name":    j.Name,
		"cron":    j.Cron,
		"event":   j.Event,
		"input":   normalize(j.Input),
		"enabled": j.Enabled,
	}
}

func findJob(backend SchedulerBackend, name string) (ScheduledJob, bool) {
	for _, j := range backend.ListJobs() {
		if j.Name == name {
			return j, true
		}
	}
	return ScheduledJob{}, false
}

// RegisterSchedulerTools registers schedule.create, schedule.update,
// schedule.delete and schedule.list, letting scripts manage their own
// recurring events.
func RegisterSchedulerTools(t *tools.Tools, backend SchedulerBackend) error {
	var errs []error

	errs = append(errs, t.Register("schedule.create", tools.Def{
		Description: "Create a schedule that emits an event on a cron expression, e.g. '0 9 * * *' for 9am daily.",
		Params: map[string]tools.ParamDef{
			"name":  {Type: "string", Description: "Unique schedule name", Required: true},
			"cron":  {Type: "string", Description: "5-field cron expression", Required: true},
			"event": {Type: "string", Description: "Event emitted on each tick", Required: true},
			"input": {Type: "any", Description: "Input passed with the event"},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			job := ScheduledJob{
				Name:    stringValue(args["name"]),
				Cron:    stringValue(args["cron"]),
				Event:   stringValue(args["event"]),
				Input:   args["input"],
				Enabled: true,
			}
			if err := backend.AddJob(job); err != nil {
				return nil, fmt.Errorf("create schedule: %w", err)
			}
			return map[string]any{"success": true, "data": job.toValue()}, nil
		},
	}))

	errs = append(errs, t.Register("schedule.update", tools.Def{
		Description: "Update an existing schedule. Only provided fields are changed.",
		Params: map[string]tools.ParamDef{
			"name":    {Type: "string", Description: "Name of the schedule to update", Required: true},
			"cron":    {Type: "string", Description: "New cron expression"},
			"event":   {Type: "string", Description: "New event name"},
			"input":   {Type: "any", Description: "New event input"},
			"enabled": {Type: "boolean", Description: "Enable or disable the schedule"},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			name := stringValue(args["name"])
			job, ok := findJob(backend, name)
			if !ok {
				return nil, fmt.Errorf("schedule %q not found", name)
			}
			if v, ok := args["cron"].(string); ok && v != "" {
				job.Cron = v
			}
			if v, ok := args["event"].(string); ok && v != "" {
				job.Event = v
			}
			if v, ok := args["input"]; ok && v != nil {
				job.Input = v
			}
			if v, ok := args["enabled"].(bool); ok {
				job.Enabled = v
			}
			if err := backend.AddJob(job); err != nil {
				return nil, fmt.Errorf("update schedule: %w", err)
			}
			return map[string]any{"success": true, "data": job.toValue()}, nil
		},
	}))

	errs = append(errs, t.Register("schedule.delete", tools.Def{
		Description: "Delete a schedule by name.",
		Params: map[string]tools.ParamDef{
			"name": {Type: "string", Description: "Name of the schedule to delete", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			name := stringValue(args["name"])
			if err := backend.RemoveJob(name); err != nil {
				return nil, fmt.Errorf("delete schedule: %w", err)
			}
			return map[string]any{"success": true, "data": map[string]any{"name": name}}, nil
		},
	}))

	errs = append(errs, t.Register("schedule.list", tools.Def{
		Description: "List all schedules.",
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			jobs := backend.ListJobs()
			items := make([]any, len(jobs))
			for idx, j := range jobs {
				items[idx] = j.toValue()
			}
			return map[string]any{
				"success": true,
				"data":    map[string]any{"schedules": items, "count": float64(len(items))},
			}, nil
		},
	}))

	return errors.Join(errs...)
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return stringify(v)
}
