package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShape(t *testing.T) *Shape {
	t.Helper()
	s, err := NewShape("FinancialRecord", "id", []Field{
		{Name: "title", Kind: KindString, Required: true, Writable: true},
		{Name: "income", Alias: "income_amount", Kind: KindDecimal, Writable: true},
		{Name: "createdAt", Kind: KindDateTime, Writable: true},
	}, nil)
	require.NoError(t, err)
	return s
}

func TestResolveFieldCandidates(t *testing.T) {
	s := testShape(t)

	tests := []struct {
		name      string
		key       string
		wantField string
	}{
		{"exact name", "title", "title"},
		{"case-insensitive", "TITLE", "title"},
		{"underscores removed", "created_at", "createdAt"},
		{"spaces removed", "created at", "createdAt"},
		{"alias as given", "income_amount", "income"},
		{"alias case-insensitive", "Income_Amount", "income"},
		{"mixed case camel", "CreatedAt", "createdAt"},
		{"unknown key", "doesnotexist", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := s.ResolveField(tt.key)
			if tt.wantField == "" {
				assert.Nil(t, f)
				return
			}
			require.NotNil(t, f)
			assert.Equal(t, tt.wantField, f.Name)
		})
	}
}

func TestResolveRequired(t *testing.T) {
	s := testShape(t)
	title := s.ResolveField("title")
	require.NotNil(t, title)

	tests := []struct {
		name    string
		payload map[string]any
		want    bool
	}{
		{"present as given", map[string]any{"title": "Q1"}, true},
		{"present via candidate form", map[string]any{"TI_TLE": "Q1"}, true},
		{"present but null", map[string]any{"title": nil}, false},
		{"absent", map[string]any{"income": "10"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ResolveRequired(title, tt.payload))
		})
	}
}
