package botlang

import (
	"os"
	"path/filepath"
)

// Home returns the botlang home directory.
// It defaults to ~/.botlang but can be overridden with the BOTLANG_HOME environment variable.
func Home() string {
	if v := os.Getenv("BOTLANG_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".botlang")
}

// DefaultDBPath returns the memory database path inside home.
func DefaultDBPath(home string) string {
	return filepath.Join(home, "botlang.db")
}

// EnsureHome creates the home directory if it doesn't exist.
func EnsureHome(home string) error {
	return os.MkdirAll(home, 0o755)
}
