// Package schema defines record shapes, field descriptors, and the value
// coercion rules for the datashelf storage system. A Shape is static metadata
// describing one record type; it is assembled once at startup and never
// mutated afterwards, so it may be shared freely across requests.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the declared type of a field. The set is closed: every
// coercion and storage decision switches over these constants, so adding a
// kind means teaching the coercion table and every store adapter about it.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindDateTime
	KindEnum
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindDateTime:
		return "datetime"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Shape validation errors.
var (
	ErrShapeNameEmpty  = errors.New("shape name must not be empty")
	ErrFieldNameEmpty  = errors.New("field name must not be empty")
	ErrDuplicateField  = errors.New("duplicate field name")
	ErrDuplicateAlias  = errors.New("duplicate storage alias")
	ErrEnumNoVariants  = errors.New("enum field declares no variants")
	ErrPrimaryKeyShape = errors.New("primary key must be a non-nullable string field")
)

// Field describes one field of a record shape.
type Field struct {
	// Name is the internal field name, unique within the shape. Records
	// are keyed by it.
	Name string

	// Alias is an optional storage-column alias. When set it is also a
	// valid match target for external keys and names the column in
	// SQL-backed collections. Unique within the shape when present.
	Alias string

	Kind     Kind
	Nullable bool
	Required bool

	// Writable controls whether client payloads may assign the field.
	// Derived fields are kept non-writable and recomputed by the shape's
	// Derive hook.
	Writable bool

	// Variants lists the accepted spellings for an enum field, matched
	// case-sensitively as declared.
	Variants []string
}

// Shape is the static descriptor for one record type: its name, primary key,
// ordered fields, and an optional derivation hook.
type Shape struct {
	// Name is the record type name, e.g. "FinancialRecord". The registry
	// accepts it as a resolution token alongside the collection name.
	Name string

	// PrimaryKey names the identifier field. Client payloads never write
	// it; create generates a value when none is supplied.
	PrimaryKey string

	Fields []Field

	// Derive, when set, is invoked after every create or update assignment
	// pass to recompute derived fields from the assigned ones.
	Derive func(Record)

	byName  map[string]*Field
	byAlias map[string]*Field
}

// NewShape builds and validates a shape. Field names and aliases are indexed
// case-insensitively for the field mapper. The primary key defaults to "id"
// and is appended as a non-writable string field when not declared.
func NewShape(name, primaryKey string, fields []Field, derive func(Record)) (*Shape, error) {
	if name == "" {
		return nil, ErrShapeNameEmpty
	}
	if primaryKey == "" {
		primaryKey = "id"
	}

	s := &Shape{
		Name:       name,
		PrimaryKey: primaryKey,
		Fields:     fields,
		Derive:     derive,
		byName:     make(map[string]*Field, len(fields)+1),
		byAlias:    make(map[string]*Field),
	}

	if s.fieldIndex(primaryKey) < 0 {
		s.Fields = append(s.Fields, Field{Name: primaryKey, Kind: KindString})
	}

	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return nil, ErrFieldNameEmpty
		}
		lower := strings.ToLower(f.Name)
		if _, dup := s.byName[lower]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
		}
		s.byName[lower] = f

		if f.Alias != "" {
			lowerAlias := strings.ToLower(f.Alias)
			if _, dup := s.byAlias[lowerAlias]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateAlias, f.Alias)
			}
			s.byAlias[lowerAlias] = f
		}
		if f.Kind == KindEnum && len(f.Variants) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEnumNoVariants, f.Name)
		}
	}

	pk := s.field(primaryKey)
	if pk.Kind != KindString || pk.Nullable {
		return nil, fmt.Errorf("%w: %s", ErrPrimaryKeyShape, primaryKey)
	}
	pk.Writable = false

	return s, nil
}

// MustShape is NewShape for statically declared shapes; it panics on error.
func MustShape(name, primaryKey string, fields []Field, derive func(Record)) *Shape {
	s, err := NewShape(name, primaryKey, fields, derive)
	if err != nil {
		panic(err)
	}
	return s
}

// field returns the field with the given internal name, or nil.
func (s *Shape) field(name string) *Field {
	return s.byName[strings.ToLower(name)]
}

// fieldIndex returns the position of the named field, or -1. Usable before
// the lookup maps are populated.
func (s *Shape) fieldIndex(name string) int {
	for i := range s.Fields {
		if strings.EqualFold(s.Fields[i].Name, name) {
			return i
		}
	}
	return -1
}

// StringFields returns the internal names of every string-kind field, in
// declaration order. The query planner spreads substring filters across them.
func (s *Shape) StringFields() []string {
	var names []string
	for i := range s.Fields {
		if s.Fields[i].Kind == KindString {
			names = append(names, s.Fields[i].Name)
		}
	}
	return names
}

// Column returns the storage column name for a field: the alias when
// declared, the internal name otherwise.
func (f *Field) Column() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Record is one record instance: internal field name to typed value. Values
// conform to the owning shape's kinds (string, bool, int64, float64,
// decimal.Decimal, time.Time, or nil for null).
type Record map[string]any

// NewRecord instantiates a blank record: every non-nullable field holds its
// kind's zero value, nullable fields hold null. Enum fields default to their
// first declared variant.
func (s *Shape) NewRecord() Record {
	rec := make(Record, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Nullable {
			rec[f.Name] = nil
			continue
		}
		rec[f.Name] = zeroValue(f)
	}
	return rec
}

// Clone returns a shallow copy. Values are scalars, so a shallow copy is a
// full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
