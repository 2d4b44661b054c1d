// Package query builds declarative query plans against a record shape.
// A Plan carries no storage knowledge: each collection adapter interprets
// it with its native filtering, ordering, and paging capability.
package query

import (
	"strings"

	"github.com/meshline/datashelf/pkg/schema"
)

// Pagination defaults, applied whenever a page spec is absent or out of range.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Direction orders a sort.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ParseDirection interprets a query-string direction token. Anything other
// than "desc" (case-insensitive) is ascending.
func ParseDirection(token string) Direction {
	if strings.EqualFold(token, "desc") {
		return Descending
	}
	return Ascending
}

// Page is a clamped pagination window.
type Page struct {
	Number int
	Size   int

	// All disables the window; Number and Size are ignored. Used by the
	// report export, never by the HTTP list surface.
	All bool
}

// Offset returns the number of records to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// ClampPage normalizes a page spec: values below 1 fall back to the
// defaults, they are never rejected.
func ClampPage(number, size int) Page {
	if number < 1 {
		number = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

// Plan is the declarative query over one collection: an optional substring
// filter spread across the shape's string fields, an optional single-field
// sort, and a pagination window. Total count is always computed over the
// filtered, pre-pagination set.
type Plan struct {
	// Substring, when non-empty, filters to records where at least one of
	// FilterFields contains it. The match is case-sensitive.
	Substring    string
	FilterFields []string

	// SortField is the resolved internal field name, or empty when no sort
	// applies and the collection's natural order stands.
	SortField string
	SortDesc  bool

	Page Page
}

// Filtered reports whether the plan carries an effective filter. A substring
// against a shape with no string fields is a no-op.
func (p Plan) Filtered() bool {
	return p.Substring != "" && len(p.FilterFields) > 0
}

// Build assembles a plan for the shape. The sort token resolves through the
// shape's field mapper; an unresolvable token drops the sort silently rather
// than failing the request.
func Build(shape *schema.Shape, filter, sortToken string, dir Direction, page Page) Plan {
	plan := Plan{Page: page}

	if filter != "" {
		plan.Substring = filter
		plan.FilterFields = shape.StringFields()
	}

	if sortToken != "" {
		if f := shape.ResolveField(sortToken); f != nil {
			plan.SortField = f.Name
			plan.SortDesc = dir == Descending
		}
	}

	return plan
}

// TotalPages returns the page count for a total record count under the
// plan's window size.
func (p Plan) TotalPages(total int) int {
	if p.Page.All || p.Page.Size < 1 {
		return 1
	}
	pages := total / p.Page.Size
	if total%p.Page.Size != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}
