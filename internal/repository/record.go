// Package repository contains the persistence port the service depends on.
// Implementations live in subpackages (postgres for the remote backend,
// localstore for the SQLite fallback).
package repository

import (
	"context"
	"errors"

	"docflow/internal/model"
)

// ErrNotFound is returned by Update when the target row does not exist.
var ErrNotFound = errors.New("record not found")

// RecordStore is the metadata persistence contract: storage operations over
// whole records, no business logic.
type RecordStore interface {
	// List returns every record ordered by creation time descending.
	List(ctx context.Context) ([]model.Record, error)

	// Create inserts a new record. The caller provides ID and CreatedAt.
	// Returns the stored record (may include values set by the backend).
	Create(ctx context.Context, rec *model.Record) (*model.Record, error)

	// Update replaces the stored record identified by rec.ID.
	// Fails with ErrNotFound (or sql.ErrNoRows from SQL backends) if absent.
	Update(ctx context.Context, rec *model.Record) (*model.Record, error)

	// Delete removes a record by ID. It returns nil if the row was deleted
	// or did not exist.
	Delete(ctx context.Context, id string) error
}
