// Package storage persists the last settled state of each document so a
// restarted process can serve it before any new edit arrives.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: document not found")

// Record is the settled snapshot of one document. Error is empty when the
// latest input formatted cleanly.
type Record struct {
	ID        string
	Seq       uint64
	Input     string
	Output    string
	Error     string
	UpdatedAt time.Time
}

type Store interface {
	// Save replaces the record with the same ID.
	Save(ctx context.Context, rec Record) error
	// Load returns ErrNotFound for unknown ids.
	Load(ctx context.Context, id string) (Record, error)
	// List returns all ids, ordered.
	List(ctx context.Context) ([]string, error)
	Close() error
}
