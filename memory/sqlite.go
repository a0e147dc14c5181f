package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/everydev1618/botlang/dsl"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_items (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
);

CREATE TABLE IF NOT EXISTS scheduled_jobs (
	name       TEXT PRIMARY KEY,
	cron       TEXT NOT NULL,
	event      TEXT NOT NULL,
	input      TEXT NOT NULL DEFAULT 'null',
	enabled    INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements Store using modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at path and creates the
// schema. The path ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own database.
		db.SetMaxOpenConns(1)
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns a single item.
func (s *SQLiteStore) Get(ctx context.Context, namespace, key string) (Item, bool, error) {
	var raw string
	item := Item{Namespace: namespace, Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM memory_items WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&raw, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	if err := json.Unmarshal([]byte(raw), &item.Value); err != nil {
		return Item{}, false, fmt.Errorf("decode %s/%s: %w", namespace, key, err)
	}
	return item, true, nil
}

// Set upserts an item.
func (s *SQLiteStore) Set(ctx context.Context, namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_items (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes an item.
func (s *SQLiteStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_items WHERE namespace = ? AND key = ?`, namespace, key,
	)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// List returns the items of namespace whose key starts with prefix.
func (s *SQLiteStore) List(ctx context.Context, namespace, prefix string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM memory_items
		 WHERE namespace = ? AND key LIKE ? ESCAPE '\'
		 ORDER BY key ASC`,
		namespace, escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item := Item{Namespace: namespace}
		var raw string
		if err := rows.Scan(&item.Key, &raw, &item.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &item.Value); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", namespace, item.Key, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveJob persists a scheduled job, replacing one of the same name.
func (s *SQLiteStore) SaveJob(job dsl.ScheduledJob) error {
	input, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("encode job %s input: %w", job.Name, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO scheduled_jobs (name, cron, event, input, enabled) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET cron = excluded.cron, event = excluded.event,
		   input = excluded.input, enabled = excluded.enabled`,
		job.Name, job.Cron, job.Event, string(input), job.Enabled,
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.Name, err)
	}
	return nil
}

// DeleteJob removes a scheduled job by name.
func (s *SQLiteStore) DeleteJob(name string) error {
	result, err := s.db.Exec(`DELETE FROM scheduled_jobs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", name, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListJobs returns all persisted jobs ordered by name.
func (s *SQLiteStore) ListJobs() ([]dsl.ScheduledJob, error) {
	rows, err := s.db.Query(`SELECT name, cron, event, input, enabled FROM scheduled_jobs ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []dsl.ScheduledJob
	for rows.Next() {
		var job dsl.ScheduledJob
		var input string
		if err := rows.Scan(&job.Name, &job.Cron, &job.Event, &input, &job.Enabled); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(input), &job.Input); err != nil {
			return nil, fmt.Errorf("decode job %s input: %w", job.Name, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
