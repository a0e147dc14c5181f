package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

func execute(t *testing.T, ts *Tools, name string, args map[string]any) any {
	t.Helper()
	result, err := ts.Execute(context.Background(), name, args, newTestEnv())
	if err != nil {
		t.Fatalf("Execute(%s): %v", name, err)
	}
	return result
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// --- RegisterDynamicTool ---

func TestRegisterDynamicTool(t *testing.T) {
	t.Run("static value is copied per call", func(t *testing.T) {
		ts := New()
		err := ts.RegisterDynamicTool(DynamicToolDef{
			Name: "plans",
			Implementation: DynamicToolImpl{
				Type:  "static",
				Value: map[string]any{"success": true, "data": map[string]any{"tiers": []any{"free", "pro"}}},
			},
		})
		if err != nil {
			t.Fatalf("RegisterDynamicTool: %v", err)
		}

		first := execute(t, ts, "plans", nil).(map[string]any)
		first["success"] = false
		second := execute(t, ts, "plans", nil).(map[string]any)
		if second["success"] != true {
			t.Error("static value was mutated through a previous result")
		}
	})

	t.Run("template renders args", func(t *testing.T) {
		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{
			Name:           "greet",
			Params:         []DynamicParamDef{{Name: "name", Type: "string", Required: true}},
			Implementation: DynamicToolImpl{Type: "template", Template: "Hello, {{.name}}!"},
		})
		if got := execute(t, ts, "greet", map[string]any{"name": "Ada"}); got != "Hello, Ada!" {
			t.Errorf("result = %v, want Hello, Ada!", got)
		}
	})

	t.Run("template with json output", func(t *testing.T) {
		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{
			Name: "ticket",
			Implementation: DynamicToolImpl{
				Type:     "template",
				Template: `{"success": true, "data": {"id": "{{.id}}"}}`,
				Output:   "json",
			},
		})
		got := execute(t, ts, "ticket", map[string]any{"id": "T-1"}).(map[string]any)
		if got["data"].(map[string]any)["id"] != "T-1" {
			t.Errorf("result = %v", got)
		}
	})

	t.Run("unknown implementation type returns error", func(t *testing.T) {
		ts := New()
		err := ts.RegisterDynamicTool(DynamicToolDef{
			Name:           "bad_tool",
			Implementation: DynamicToolImpl{Type: "magic"},
		})
		if err == nil {
			t.Fatal("expected error for unknown type, got nil")
		}
	})

	t.Run("missing name returns error", func(t *testing.T) {
		if err := New().RegisterDynamicTool(DynamicToolDef{Implementation: DynamicToolImpl{Type: "static"}}); err == nil {
			t.Fatal("expected error for missing name")
		}
	})

	t.Run("duplicate name returns error", func(t *testing.T) {
		ts := New()
		def := DynamicToolDef{
			Name:           "dup",
			Implementation: DynamicToolImpl{Type: "static", Value: "ok"},
		}
		if err := ts.RegisterDynamicTool(def); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if err := ts.RegisterDynamicTool(def); err == nil {
			t.Fatal("expected error on duplicate register, got nil")
		}
	})

	t.Run("params are reflected in Describe", func(t *testing.T) {
		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{
			Name:        "parameterised",
			Description: "Has params",
			Params: []DynamicParamDef{
				{Name: "city", Type: "string", Required: true, Description: "The city"},
				{Name: "units", Type: "string", Enum: []string{"metric", "imperial"}},
			},
			Implementation: DynamicToolImpl{Type: "static", Value: "ok"},
		})

		infos := ts.Describe()
		if len(infos) != 1 {
			t.Fatalf("expected 1 tool, got %d", len(infos))
		}
		if _, ok := infos[0].Params["city"]; !ok {
			t.Error("city should be in params")
		}
		if _, ok := infos[0].Params["units"]; !ok {
			t.Error("units should be in params")
		}
	})
}

// --- LoadFile ---

func TestLoadFile(t *testing.T) {
	t.Run("loads valid YAML and registers tool", func(t *testing.T) {
		dir := t.TempDir()
		yaml := `
name: weather.lookup
description: Canned weather
params:
  - name: city
    type: string
    required: true
  - name: days
    type: number
    default: 3
implementation:
  type: template
  template: "{{.city}} for {{.days}} days"
`
		path := filepath.Join(dir, "weather.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatal(err)
		}

		ts := New()
		if err := ts.LoadFile(path); err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if got := execute(t, ts, "weather.lookup", map[string]any{"city": "Oslo"}); got != "Oslo for 3 days" {
			t.Errorf("result = %q, want 'Oslo for 3 days'", got)
		}
	})

	t.Run("file not found returns error", func(t *testing.T) {
		if err := New().LoadFile("/nonexistent/path.yaml"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("invalid YAML returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(":\t invalid: [yaml"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := New().LoadFile(path); err == nil {
			t.Fatal("expected error for invalid YAML")
		}
	})

	t.Run("unknown impl type in file returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte("name: bad\nimplementation:\n  type: unknown\n"), 0644)
		if err := New().LoadFile(path); err == nil {
			t.Fatal("expected error for unknown implementation type")
		}
	})
}

// --- LoadDirectory ---

func TestLoadDirectory(t *testing.T) {
	t.Run("loads .yaml and .yml files", func(t *testing.T) {
		dir := t.TempDir()
		write := func(name, content string) {
			t.Helper()
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
		}
		write("alpha.yaml", "name: alpha\nimplementation:\n  type: static\n  value: a\n")
		write("beta.yml", "name: beta\nimplementation:\n  type: static\n  value: b\n")
		write("readme.txt", "not yaml")
		os.Mkdir(filepath.Join(dir, "sub"), 0755)
		os.WriteFile(filepath.Join(dir, "sub", "nested.yaml"),
			[]byte("name: nested\nimplementation:\n  type: static\n"), 0644)

		ts := New()
		if err := ts.LoadDirectory(dir); err != nil {
			t.Fatalf("LoadDirectory: %v", err)
		}
		if got := ts.Names(); !slices.Equal(got, []string{"alpha", "beta"}) {
			t.Errorf("Names() = %v, want [alpha beta]", got)
		}
	})

	t.Run("directory not found returns error", func(t *testing.T) {
		if err := New().LoadDirectory("/nonexistent/dir"); err == nil {
			t.Fatal("expected error for missing directory")
		}
	})
}

// --- Exec executor ---

func TestExecExecutor(t *testing.T) {
	requireShell(t)

	t.Run("interpolates params into command", func(t *testing.T) {
		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{
			Name:           "echo",
			Params:         []DynamicParamDef{{Name: "name", Type: "string"}},
			Implementation: DynamicToolImpl{Type: "exec", Command: "echo {{.name}}"},
		})
		if got := execute(t, ts, "echo", map[string]any{"name": "Bob"}); got != "Bob" {
			t.Errorf("result = %q, want Bob", got)
		}
	})

	t.Run("respects quoted arguments", func(t *testing.T) {
		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{
			Name:           "quoted",
			Implementation: DynamicToolImpl{Type: "exec", Command: "echo 'hello world'"},
		})
		if got := execute(t, ts, "quoted", nil); got != "hello world" {
			t.Errorf("result = %q, want 'hello world'", got)
		}
	})

	t.Run("returns error on non-zero exit code", func(t *testing.T) {
		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{
			Name:           "fail_cmd",
			Implementation: DynamicToolImpl{Type: "exec", Command: "false"},
		})
		if _, err := ts.Execute(context.Background(), "fail_cmd", nil, newTestEnv()); err == nil {
			t.Fatal("expected error for non-zero exit, got nil")
		}
	})
}

// --- File executors ---

func TestFileExecutors(t *testing.T) {
	t.Run("file_write then file_read round-trips content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.txt")

		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{Name: "write_it", Implementation: DynamicToolImpl{Type: "file_write"}})
		ts.RegisterDynamicTool(DynamicToolDef{Name: "read_it", Implementation: DynamicToolImpl{Type: "file_read"}})

		execute(t, ts, "write_it", map[string]any{"path": path, "content": "hello from dynamic tool"})
		if got := execute(t, ts, "read_it", map[string]any{"path": path}); got != "hello from dynamic tool" {
			t.Errorf("content = %q, want 'hello from dynamic tool'", got)
		}
	})

	t.Run("configured path template", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "faq-billing.txt"), []byte("Pay monthly."), 0644)

		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{
			Name:           "faq",
			Implementation: DynamicToolImpl{Type: "file_read", Path: dir + "/faq-{{.topic}}.txt"},
		})
		if got := execute(t, ts, "faq", map[string]any{"topic": "billing"}); got != "Pay monthly." {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("missing path or content returns error", func(t *testing.T) {
		ts := New()
		ts.RegisterDynamicTool(DynamicToolDef{Name: "read_it", Implementation: DynamicToolImpl{Type: "file_read"}})
		ts.RegisterDynamicTool(DynamicToolDef{Name: "write_it", Implementation: DynamicToolImpl{Type: "file_write"}})
		ctx := context.Background()
		if _, err := ts.Execute(ctx, "read_it", map[string]any{}, newTestEnv()); err == nil {
			t.Error("expected error for missing path")
		}
		if _, err := ts.Execute(ctx, "write_it", map[string]any{"content": "hi"}, newTestEnv()); err == nil {
			t.Error("expected error for missing path")
		}
		if _, err := ts.Execute(ctx, "write_it", map[string]any{"path": filepath.Join(t.TempDir(), "x")}, newTestEnv()); err == nil {
			t.Error("expected error for missing content")
		}
	})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"echo hi", []string{"echo", "hi"}},
		{`echo "a b" c`, []string{"echo", "a b", "c"}},
		{"echo 'it\"s'", []string{"echo", `it"s`}},
		{"  ", nil},
	}
	for _, tt := range tests {
		if got := parseCommand(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
