package serve

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everydev1618/botlang/dsl"
)

type emitted struct {
	name  string
	input any
	vars  map[string]any
}

// recordingEmitter captures every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
	errs   []string
}

func (r *recordingEmitter) EmitEvent(ctx context.Context, name string, input any, vars map[string]any) *dsl.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{name: name, input: input, vars: vars})
	return &dsl.Result{RunID: "run", Errors: r.errs}
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestSchedulerAddAndList(t *testing.T) {
	var persisted []string
	s := NewScheduler(&recordingEmitter{}, func(job dsl.ScheduledJob) error {
		persisted = append(persisted, job.Name)
		return nil
	}, nil)

	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "a", Cron: "0 9 * * *", Event: "digest", Enabled: true}))
	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "b", Cron: "*/5 * * * *", Event: "tick", Enabled: false}))
	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "a", Cron: "0 10 * * *", Event: "digest", Enabled: true}))

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "b", jobs[0].Name)
	assert.Equal(t, "a", jobs[1].Name)
	assert.Equal(t, "0 10 * * *", jobs[1].Cron)
	assert.Equal(t, []string{"a", "b", "a"}, persisted)
	assert.Len(t, s.entries, 1, "disabled jobs have no cron entry")
}

func TestSchedulerRejectsBadJobs(t *testing.T) {
	s := NewScheduler(&recordingEmitter{}, nil, nil)
	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "a", Cron: "0 9 * * *", Event: "e", Enabled: true}))

	err := s.AddJob(dsl.ScheduledJob{Name: "a", Cron: "not cron", Event: "e", Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
	assert.Equal(t, "0 9 * * *", s.ListJobs()[0].Cron, "failed update keeps the old job")

	assert.Error(t, s.AddJob(dsl.ScheduledJob{Name: "off", Cron: "bad", Event: "e"}))
	assert.Error(t, s.AddJob(dsl.ScheduledJob{Cron: "* * * * *", Event: "e"}))
	assert.Error(t, s.AddJob(dsl.ScheduledJob{Name: "x", Cron: "* * * * *"}))
}

func TestSchedulerRemoveJob(t *testing.T) {
	var removed []string
	s := NewScheduler(&recordingEmitter{}, nil, func(name string) error {
		removed = append(removed, name)
		return errors.New("store unavailable")
	})
	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "on", Cron: "* * * * *", Event: "e", Enabled: true}))
	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "off", Cron: "* * * * *", Event: "e"}))

	require.NoError(t, s.RemoveJob("on"))
	require.NoError(t, s.RemoveJob("off"), "disabled jobs can be removed")
	assert.Empty(t, s.ListJobs())
	assert.Empty(t, s.entries)
	assert.Equal(t, []string{"on", "off"}, removed)

	err := s.RemoveJob("on")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSchedulerFire(t *testing.T) {
	em := &recordingEmitter{errs: []string{"boom"}}
	s := NewScheduler(em, nil, nil)
	input := map[string]any{"topic": "news"}
	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "daily", Cron: "0 9 * * *", Event: "digest", Input: input}))

	res, err := s.Fire(context.Background(), "daily")
	require.NoError(t, err)
	assert.Equal(t, []string{"boom"}, res.Errors)
	require.Len(t, em.events, 1)
	assert.Equal(t, "digest", em.events[0].name)
	assert.Equal(t, input, em.events[0].input)
	assert.Equal(t, map[string]any{"schedule": "daily"}, em.events[0].vars)

	_, err = s.Fire(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSchedulerRunsJobs(t *testing.T) {
	em := &recordingEmitter{}
	s := NewScheduler(em, nil, nil)
	require.NoError(t, s.AddJob(dsl.ScheduledJob{Name: "fast", Cron: "@every 1s", Event: "tick", Enabled: true}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return em.count() > 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Equal(t, "tick", em.events[0].name)
}
