package botlang

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStateFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vars.json")
	sf := NewStateFile(path)

	vars, err := sf.Load()
	if err != nil || vars != nil {
		t.Fatalf("Load() of missing file = %v, %v; want nil, nil", vars, err)
	}

	err = sf.Save(map[string]any{
		"count": 2.0,
		"user":  map[string]any{"name": "Ada"},
		"input": "hello",
		"event": "tick",
	})
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := sf.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := map[string]any{"count": 2.0, "user": map[string]any{"name": "Ada"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestStateFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStateFile(path).Load(); err == nil {
		t.Error("Load() of corrupt file should fail")
	}
}

func TestStateFileSaveNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")
	sf := NewStateFile(path)
	if err := sf.Save(nil); err != nil {
		t.Fatalf("Save(nil) error: %v", err)
	}
	got, err := sf.Load()
	if err != nil || len(got) != 0 || got == nil {
		t.Errorf("Load() = %v, %v; want empty map", got, err)
	}
}
