package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshline/datashelf/pkg/schema"
)

func planShape(t *testing.T) *schema.Shape {
	t.Helper()
	s, err := schema.NewShape("Item", "id", []schema.Field{
		{Name: "name", Kind: schema.KindString},
		{Name: "note", Kind: schema.KindString},
		{Name: "count", Kind: schema.KindInt},
	}, nil)
	require.NoError(t, err)
	return s
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		name         string
		number, size int
		wantN, wantS int
	}{
		{"in range", 3, 25, 3, 25},
		{"zero page falls back", 0, 25, 1, 25},
		{"negative size falls back", 3, -1, 3, 10},
		{"both out of range", -2, 0, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ClampPage(tt.number, tt.size)
			assert.Equal(t, tt.wantN, p.Number)
			assert.Equal(t, tt.wantS, p.Size)
		})
	}
}

func TestBuildFilterSpansStringFields(t *testing.T) {
	plan := Build(planShape(t), "abc", "", Ascending, ClampPage(1, 10))
	assert.True(t, plan.Filtered())
	assert.Equal(t, "abc", plan.Substring)
	assert.Equal(t, []string{"name", "note", "id"}, plan.FilterFields)
}

func TestFilterWithoutStringFieldsIsNoop(t *testing.T) {
	plan := Plan{Substring: "abc"}
	assert.False(t, plan.Filtered())
}

func TestBuildSort(t *testing.T) {
	shape := planShape(t)

	t.Run("resolvable token sorts", func(t *testing.T) {
		plan := Build(shape, "", "Count", Descending, ClampPage(1, 10))
		assert.Equal(t, "count", plan.SortField)
		assert.True(t, plan.SortDesc)
	})

	t.Run("unresolvable token drops the sort", func(t *testing.T) {
		plan := Build(shape, "", "doesnotexist", Descending, ClampPage(1, 10))
		assert.Empty(t, plan.SortField)
	})
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Descending, ParseDirection("desc"))
	assert.Equal(t, Descending, ParseDirection("DESC"))
	assert.Equal(t, Ascending, ParseDirection("asc"))
	assert.Equal(t, Ascending, ParseDirection(""))
	assert.Equal(t, Ascending, ParseDirection("sideways"))
}

func TestTotalPages(t *testing.T) {
	plan := Plan{Page: ClampPage(1, 10)}
	assert.Equal(t, 3, plan.TotalPages(25))
	assert.Equal(t, 1, plan.TotalPages(0))
	assert.Equal(t, 1, plan.TotalPages(10))
	assert.Equal(t, 2, plan.TotalPages(11))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, ClampPage(1, 10).Offset())
	assert.Equal(t, 20, ClampPage(3, 10).Offset())
}
