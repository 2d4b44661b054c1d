// Package store provides the persistence engine behind datashelf
// collections. A Backend owns the durable medium and hands out one
// Collection per registered shape; collections are safe for concurrent use
// and are the sole owners of the records they hold.
package store

import (
	"errors"

	"github.com/meshline/datashelf/internal/query"
	"github.com/meshline/datashelf/pkg/schema"
)

// Collection operation errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record modified concurrently")
	ErrDuplicate = errors.New("record already exists")
	ErrInvalidID = errors.New("invalid record ID")
)

// Config selection errors.
var (
	ErrBackendUnknown = errors.New("unknown storage backend")
)

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Collection is the uniform capability set over one record type's backing
// store. Records are returned by value; mutating a returned record never
// affects the stored copy.
type Collection interface {
	// Get retrieves a record and its current version by primary key.
	// Returns ErrNotFound if no record exists with that ID.
	Get(id string) (schema.Record, uint64, error)

	// Insert stores a new record under its primary-key value.
	// Returns ErrDuplicate if the ID is already taken.
	Insert(rec schema.Record) error

	// Update replaces the stored record if its version still equals
	// expected. Returns ErrNotFound for a missing ID and ErrConflict when
	// the record changed since the caller read it.
	Update(id string, rec schema.Record, expected uint64) error

	// Delete removes the record. Returns ErrNotFound if absent, which
	// makes repeated deletes observably idempotent for callers.
	Delete(id string) error

	// Select executes a query plan and returns the page of matching
	// records plus the total count of the filtered, pre-pagination set.
	Select(plan query.Plan) ([]schema.Record, int, error)
}

// Backend creates and owns collections for a set of shapes.
type Backend interface {
	// Collection returns the collection for the given name, creating its
	// backing storage from the shape on first use.
	Collection(name string, shape *schema.Shape) (Collection, error)

	// Close releases backend resources. Collections obtained from the
	// backend must not be used afterwards.
	Close() error
}
