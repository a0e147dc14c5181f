package botlang

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// transientVars are bound per call and never saved.
var transientVars = []string{"input", "event"}

// StateFile keeps script variables in a JSON file between runs.
type StateFile struct {
	path string
	mu   sync.Mutex
}

// NewStateFile creates a state file handle. The file is not touched until
// Load or Save.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Path returns the file path.
func (s *StateFile) Path() string {
	return s.path
}

// Save writes vars to the file, leaving out per-call variables.
func (s *StateFile) Save(vars map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := maps.Clone(vars)
	if out == nil {
		out = map[string]any{}
	}
	for _, k := range transientVars {
		delete(out, k)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads variables from the file. A missing file yields nil.
func (s *StateFile) Load() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var vars map[string]any
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", s.path, err)
	}
	return vars, nil
}
