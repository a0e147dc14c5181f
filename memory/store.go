// Package memory persists bot state between runs: key/value items that
// scripts read and write through the memory.* tools, and the schedules
// created with the schedule.* tools.
package memory

import (
	"context"
	"time"

	"github.com/everydev1618/botlang/dsl"
)

// GlobalNamespace holds items written by top-level statements and items
// written with scope "global".
const GlobalNamespace = "global"

// Item is one stored value.
type Item struct {
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists memory items and scheduled jobs.
type Store interface {
	// Get returns the item stored under namespace and key. The boolean is
	// false when no such item exists.
	Get(ctx context.Context, namespace, key string) (Item, bool, error)

	// Set creates or replaces an item. Value must be JSON-encodable.
	Set(ctx context.Context, namespace, key string, value any) error

	// Delete removes an item and reports whether it existed.
	Delete(ctx context.Context, namespace, key string) (bool, error)

	// List returns the items of a namespace whose key starts with prefix,
	// ordered by key.
	List(ctx context.Context, namespace, prefix string) ([]Item, error)

	// SaveJob creates or replaces a scheduled job.
	SaveJob(job dsl.ScheduledJob) error

	// DeleteJob removes a scheduled job.
	DeleteJob(name string) error

	// ListJobs returns every saved job ordered by name.
	ListJobs() ([]dsl.ScheduledJob, error)

	// Close closes the store.
	Close() error
}
