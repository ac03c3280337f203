// Package storage
package storage

import (
	"context"
)

// DefaultListLimit and MaxListLimit bound List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Driver defines the interface for persisting and retrieving generated ideas
// in a storage backend.
type Driver interface {
	// Put stores an idea. Returns true if the idea was newly inserted,
	// false if an idea with the same ID already exists, in which case Put is
	// a no-op.
	Put(ctx context.Context, idea *Idea) (bool, error)

	// Get retrieves an idea by its ID. Returns NotFoundError when missing.
	Get(ctx context.Context, id string) (*Idea, error)

	// List returns up to limit ideas, most recently completed first.
	List(ctx context.Context, limit int) ([]*Idea, error)

	// Count returns the number of stored ideas.
	Count(ctx context.Context) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ClampLimit maps a requested list size onto [1, MaxListLimit], using
// DefaultListLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
