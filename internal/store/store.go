// Package store provides the memory storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/longform-memory/internal/model"
)

// ErrNotFound is returned when a memory id is absent or soft-deactivated.
var ErrNotFound = errors.New("memory not found")

// Store defines the memory storage interface.
type Store interface {
	// Save inserts or replaces a memory by id and marks it active.
	// The embedding, if any, goes to the volatile side-table only.
	Save(ctx context.Context, m *model.Memory) error

	// SaveBatch saves each memory and returns the number persisted.
	// One failing record does not block the rest.
	SaveBatch(ctx context.Context, mems []*model.Memory) int

	// Get returns an active memory by id, with its embedding reattached
	// from the side-table when present. Returns ErrNotFound for absent
	// or deactivated records.
	Get(ctx context.Context, id string) (*model.Memory, error)

	// GetAll returns all memories, optionally only active ones,
	// in insertion order.
	GetAll(ctx context.Context, activeOnly bool) ([]model.Memory, error)

	// FindByType returns active memories of the given type.
	FindByType(ctx context.Context, memType string) ([]model.Memory, error)

	// SearchByKey returns active memories whose key contains the substring.
	SearchByKey(ctx context.Context, substr string) ([]model.Memory, error)

	// MarkAccessed records a retrieval hit: sets last_accessed_turn and
	// increments access_count. Each call increments again.
	MarkAccessed(ctx context.Context, id string, turn int) error

	// Deactivate soft-deletes a memory. The row stays durable but is
	// excluded from normal reads. There is no hard delete.
	Deactivate(ctx context.Context, id string) error

	// Stats returns aggregate counts over active memories.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases underlying resources. Safe to call more than once.
	Close() error
}
