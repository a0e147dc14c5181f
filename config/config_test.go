package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefault(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BOTLANG_HOME", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout.Duration)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BOTLANG_HOME", "")

	path := writeFile(t, "botlang.yaml", `
log_level: debug
tool_timeout: 5s
sandbox: /tmp/bots
allow_exec: true
memory:
  path: /tmp/bots/mem.db
tracing:
  enabled: true
  endpoint: localhost:4318
schedules:
  - name: morning
    cron: "0 9 * * *"
    event: digest
    input:
      topic: news
    enabled: true
tools:
  - name: greet
    description: Greets someone
    params:
      - name: who
        type: string
        required: true
    implementation:
      type: template
      template: "Hello {{.who}}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout.Duration)
	assert.Equal(t, 8, cfg.MaxParallel, "unset fields keep defaults")
	assert.Equal(t, "/tmp/bots", cfg.Sandbox)
	assert.True(t, cfg.AllowExec)
	assert.Equal(t, "/tmp/bots/mem.db", cfg.Memory.Path)
	assert.Equal(t, "localhost:4318", cfg.Tracing.Endpoint)

	require.Len(t, cfg.Schedules, 1)
	assert.Equal(t, "digest", cfg.Schedules[0].Event)
	assert.Equal(t, map[string]any{"topic": "news"}, cfg.Schedules[0].Input)
	assert.True(t, cfg.Schedules[0].Enabled)

	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "greet", cfg.Tools[0].Name)
	assert.Equal(t, "template", cfg.Tools[0].Implementation.Type)
	assert.True(t, cfg.Tools[0].Params[0].Required)
}

func TestLoadTOML(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BOTLANG_HOME", "")

	path := writeFile(t, "botlang.toml", `
log_level = "warn"
tool_timeout = "1m"
tools_dir = "./tools"

[memory]
disabled = true

[[schedules]]
name = "nightly"
cron = "0 0 * * *"
event = "cleanup"
enabled = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.ToolTimeout.Duration)
	assert.Equal(t, "./tools", cfg.ToolsDir)
	assert.True(t, cfg.Memory.Disabled)
	require.Len(t, cfg.Schedules, 1)
	assert.Equal(t, "nightly", cfg.Schedules[0].Name)
	assert.False(t, cfg.Schedules[0].Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("BOTLANG_HOME", "/srv/botlang")

	path := writeFile(t, "c.yml", "log_level: debug\nhome: /elsewhere\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "/srv/botlang", cfg.Home)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BOTLANG_HOME", "")

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown extension", "c.json", "{}", "unsupported config format"},
		{"bad yaml", "c.yaml", "log_level: [", "parse"},
		{"bad toml", "c.toml", "log_level = ", "parse"},
		{"bad duration", "c.yaml", "tool_timeout: soon", `invalid duration "soon"`},
		{"bad level", "c.yaml", "log_level: loud", "unknown level"},
		{"tracing without endpoint", "c.yaml", "tracing:\n  enabled: true", "endpoint is required"},
		{"duplicate schedules", "c.yaml", "schedules:\n  - {name: a, event: e}\n  - {name: a, event: e}", `duplicate name "a"`},
		{"schedule without event", "c.yaml", "schedules:\n  - {name: a}", "event is required"},
		{"tool without name", "c.yaml", "tools:\n  - description: x", "tools[0]: name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
