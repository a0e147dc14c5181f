package serve

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everydev1618/botlang/dsl"
	"github.com/everydev1618/botlang/memory"
)

func openStore(t *testing.T) *memory.SQLiteStore {
	t.Helper()
	store, err := memory.NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHostRestoresSchedules(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.SaveJob(dsl.ScheduledJob{Name: "daily", Cron: "0 8 * * *", Event: "stored", Enabled: true}))

	interp := dsl.NewInterpreter()
	h := NewHost(interp, interp.Tools(), Config{
		Store: store,
		Jobs: []dsl.ScheduledJob{
			{Name: "daily", Cron: "0 9 * * *", Event: "configured", Enabled: true},
			{Name: "hourly", Cron: "0 * * * *", Event: "tick", Enabled: true},
		},
	})
	require.NoError(t, h.setup())

	jobs := h.Scheduler().ListJobs()
	require.Len(t, jobs, 2)
	byName := map[string]dsl.ScheduledJob{}
	for _, j := range jobs {
		byName[j.Name] = j
	}
	assert.Equal(t, "stored", byName["daily"].Event, "stored schedule replaces configured one")
	assert.Equal(t, "tick", byName["hourly"].Event)

	stored, err := store.ListJobs()
	require.NoError(t, err)
	assert.Len(t, stored, 1, "configured schedules are not written back")
}

func TestHostScriptSchedulesPersist(t *testing.T) {
	store := openStore(t)
	interp := dsl.NewInterpreter()
	_, err := interp.Load(`bot Reminder
  on event "remind"
    say "time to stretch"
  end
end
`)
	require.NoError(t, err)

	h := NewHost(interp, interp.Tools(), Config{Store: store})
	require.NoError(t, h.setup())
	require.NoError(t, h.setup(), "setup is idempotent")

	res, err := interp.Run(context.Background(), `call schedule.create with {name: "stretch", cron: "0 * * * *", event: "remind"}`, nil, nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	stored, err := store.ListJobs()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "remind", stored[0].Event)

	fired, err := h.Scheduler().Fire(context.Background(), "stretch")
	require.NoError(t, err)
	assert.Equal(t, []any{"time to stretch"}, fired.Output)

	res, err = interp.Run(context.Background(), `call schedule.delete with {name: "stretch"}`, nil, nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	stored, err = store.ListJobs()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestHostStartStops(t *testing.T) {
	interp := dsl.NewInterpreter()
	h := NewHost(interp, interp.Tools(), Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, h.Start(ctx))
	assert.Positive(t, h.Uptime())
}

func TestHostRejectsBadConfiguredSchedule(t *testing.T) {
	interp := dsl.NewInterpreter()
	h := NewHost(interp, nil, Config{Jobs: []dsl.ScheduledJob{{Name: "x", Cron: "nope", Event: "e", Enabled: true}}})
	err := h.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured schedule")
}
