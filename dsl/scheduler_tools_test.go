package dsl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeScheduler keeps jobs in memory in insertion order.
type fakeScheduler struct {
	jobs   []ScheduledJob
	addErr error
}

func (f *fakeScheduler) AddJob(job ScheduledJob) error {
	if f.addErr != nil {
		return f.addErr
	}
	for i, j := range f.jobs {
		if j.Name == job.Name {
			f.jobs[i] = job
			return nil
		}
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeScheduler) RemoveJob(name string) error {
	for i, j := range f.jobs {
		if j.Name == name {
			f.jobs = append(f.jobs[:i], f.jobs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("schedule %q not found", name)
}

func (f *fakeScheduler) ListJobs() []ScheduledJob {
	return append([]ScheduledJob(nil), f.jobs...)
}

func TestSchedulerToolsFromScript(t *testing.T) {
	backend := &fakeScheduler{}
	interp := NewInterpreter()
	if err := RegisterSchedulerTools(interp.Tools(), backend); err != nil {
		t.Fatalf("RegisterSchedulerTools() error: %v", err)
	}

	src := `call schedule.create with {name: "daily", cron: "0 9 * * *", event: "digest", input: {topic: "news"}} as job
say job.name
call schedule.update with {name: "daily", enabled: false, cron: "0 10 * * *"}
call schedule.list as all
say all.count
say all.schedules[0].enabled
call schedule.create with {name: "broken"}
`
	res := run(t, interp, src, nil, nil)
	wantOutput(t, res, "daily", 1.0, false)
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "invalid arguments") {
		t.Errorf("Errors = %v, want one invalid arguments error", res.Errors)
	}

	want := []ScheduledJob{{
		Name:    "daily",
		Cron:    "0 10 * * *",
		Event:   "digest",
		Input:   map[string]any{"topic": "news"},
		Enabled: false,
	}}
	if diff := cmp.Diff(want, backend.jobs); diff != "" {
		t.Errorf("jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerToolsDelete(t *testing.T) {
	backend := &fakeScheduler{jobs: []ScheduledJob{{Name: "a", Cron: "* * * * *", Event: "tick", Enabled: true}}}
	interp := NewInterpreter()
	if err := RegisterSchedulerTools(interp.Tools(), backend); err != nil {
		t.Fatalf("RegisterSchedulerTools() error: %v", err)
	}

	res := run(t, interp, "call schedule.delete with {name: \"a\"} as gone\nsay gone.name\ncall schedule.delete with {name: \"a\"}", nil, nil)
	wantOutput(t, res, "a")
	if len(backend.jobs) != 0 {
		t.Errorf("jobs = %v, want none", backend.jobs)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "not found") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestSchedulerToolsErrors(t *testing.T) {
	backend := &fakeScheduler{addErr: errors.New("bad cron")}
	interp := NewInterpreter()
	if err := RegisterSchedulerTools(interp.Tools(), backend); err != nil {
		t.Fatalf("RegisterSchedulerTools() error: %v", err)
	}
	ctx := context.Background()

	_, err := interp.Tools().Execute(ctx, "schedule.create", map[string]any{"name": "x", "cron": "nope", "event": "e"}, nil)
	if err == nil || !strings.Contains(err.Error(), "bad cron") {
		t.Errorf("create error = %v, want bad cron", err)
	}
	_, err = interp.Tools().Execute(ctx, "schedule.update", map[string]any{"name": "missing"}, nil)
	if err == nil || !strings.Contains(err.Error(), `schedule "missing" not found`) {
		t.Errorf("update error = %v", err)
	}

	if err := RegisterSchedulerTools(interp.Tools(), backend); err == nil {
		t.Error("registering twice should fail")
	}
}
