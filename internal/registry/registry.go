// Package registry resolves runtime type-name tokens to registered
// collection adapters. The table is assembled once at startup and read-only
// afterwards, so lookups need no locking.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meshline/datashelf/internal/store"
	"github.com/meshline/datashelf/pkg/schema"
)

// ErrDuplicateCollection is returned when a collection name is registered twice.
var ErrDuplicateCollection = errors.New("collection already registered")

// Adapter binds one registered collection: its name, its shape, and its
// backing store handle.
type Adapter struct {
	Collection string
	Shape      *schema.Shape
	Store      store.Collection
}

// Entry is one line of the registry catalog: collection name paired with its
// record type name. The catalog is part of the resolution-failure contract.
type Entry struct {
	Collection string `json:"collection"`
	RecordType string `json:"recordType"`
}

// ResolutionError reports an unresolvable type-name token. It carries the
// full catalog so callers can surface what is available.
type ResolutionError struct {
	Token   string
	Catalog []Entry
}

func (e *ResolutionError) Error() string {
	pairs := make([]string, len(e.Catalog))
	for i, entry := range e.Catalog {
		pairs[i] = fmt.Sprintf("%s (%s)", entry.Collection, entry.RecordType)
	}
	return fmt.Sprintf("unknown collection %q; registered collections: %s",
		e.Token, strings.Join(pairs, ", "))
}

// Registry is the process-wide table of collection adapters.
type Registry struct {
	adapters []*Adapter
	byName   map[string]*Adapter
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*Adapter)}
}

// Register adds an adapter under its collection name. Names are matched
// case-insensitively, so registration lowercases them.
func (r *Registry) Register(a *Adapter) error {
	name := strings.ToLower(a.Collection)
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCollection, a.Collection)
	}
	r.byName[name] = a
	r.adapters = append(r.adapters, a)
	return nil
}

// Resolve maps a type-name token to its adapter. Matching policy, tried in
// order, case-insensitive:
//
//  1. exact match against a collection name,
//  2. the token with a pluralizing "s" appended, against a collection name,
//  3. match against a shape's record type name.
//
// On failure the returned error is a *ResolutionError enumerating every
// registered (collection, record type) pair.
func (r *Registry) Resolve(token string) (*Adapter, error) {
	lower := strings.ToLower(token)

	if a, ok := r.byName[lower]; ok {
		return a, nil
	}
	if a, ok := r.byName[lower+"s"]; ok {
		return a, nil
	}
	for _, a := range r.adapters {
		if strings.EqualFold(a.Shape.Name, token) {
			return a, nil
		}
	}

	return nil, &ResolutionError{Token: token, Catalog: r.Catalog()}
}

// Catalog returns every registered collection paired with its record type
// name, in registration order.
func (r *Registry) Catalog() []Entry {
	entries := make([]Entry, 0, len(r.adapters))
	for _, a := range r.adapters {
		entries = append(entries, Entry{Collection: a.Collection, RecordType: a.Shape.Name})
	}
	return entries
}
