// In-memory backend: an RWMutex-guarded map per collection with explicit
// version counters. Used by tests and by deployments that accept losing data
// on restart.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meshline/datashelf/internal/query"
	"github.com/meshline/datashelf/pkg/schema"
)

// MemoryBackend keeps every collection in process memory.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memoryCollection)}
}

// Collection returns the named collection, creating it on first use.
func (b *MemoryBackend) Collection(name string, shape *schema.Shape) (Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.collections[name]; ok {
		return c, nil
	}
	c := &memoryCollection{
		shape:   shape,
		records: make(map[string]memoryEntry),
	}
	b.collections[name] = c
	return c, nil
}

// Close drops all collections.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections = make(map[string]*memoryCollection)
	return nil
}

type memoryEntry struct {
	rec     schema.Record
	version uint64
	seq     uint64 // insertion order, the collection's natural order
}

type memoryCollection struct {
	mu      sync.RWMutex
	shape   *schema.Shape
	records map[string]memoryEntry
	nextSeq uint64
}

func (c *memoryCollection) Get(id string) (schema.Record, uint64, error) {
	if id == "" {
		return nil, 0, ErrInvalidID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.records[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return entry.rec.Clone(), entry.version, nil
}

func (c *memoryCollection) Insert(rec schema.Record) error {
	id, _ := rec[c.shape.PrimaryKey].(string)
	if id == "" {
		return ErrInvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[id]; exists {
		return ErrDuplicate
	}
	c.nextSeq++
	c.records[id] = memoryEntry{rec: rec.Clone(), version: 1, seq: c.nextSeq}
	return nil
}

func (c *memoryCollection) Update(id string, rec schema.Record, expected uint64) error {
	if id == "" {
		return ErrInvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.records[id]
	if !ok {
		return ErrNotFound
	}
	if entry.version != expected {
		return ErrConflict
	}
	entry.rec = rec.Clone()
	entry.version++
	c.records[id] = entry
	return nil
}

func (c *memoryCollection) Delete(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return ErrNotFound
	}
	delete(c.records, id)
	return nil
}

func (c *memoryCollection) Select(plan query.Plan) ([]schema.Record, int, error) {
	c.mu.RLock()
	entries := make([]memoryEntry, 0, len(c.records))
	for _, entry := range c.records {
		if matches(entry.rec, plan) {
			entries = append(entries, entry)
		}
	}
	c.mu.RUnlock()

	if plan.SortField != "" {
		field := plan.SortField
		sort.SliceStable(entries, func(i, j int) bool {
			cmp := compareValues(entries[i].rec[field], entries[j].rec[field])
			if plan.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	} else {
		sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	}

	total := len(entries)
	if !plan.Page.All {
		start := plan.Page.Offset()
		if start > total {
			start = total
		}
		end := start + plan.Page.Size
		if end > total {
			end = total
		}
		entries = entries[start:end]
	}

	out := make([]schema.Record, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.rec.Clone())
	}
	return out, total, nil
}

// matches applies the plan's substring filter: true when any filter field's
// string value contains the substring. Case-sensitive.
func matches(rec schema.Record, plan query.Plan) bool {
	if !plan.Filtered() {
		return true
	}
	for _, field := range plan.FilterFields {
		if s, ok := rec[field].(string); ok && strings.Contains(s, plan.Substring) {
			return true
		}
	}
	return false
}

// compareValues orders two typed field values of the same kind. Nulls sort
// before everything else.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case decimal.Decimal:
		return av.Cmp(b.(decimal.Decimal))
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
