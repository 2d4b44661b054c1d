package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShapeValidation(t *testing.T) {
	tests := []struct {
		name    string
		shape   string
		fields  []Field
		wantErr error
	}{
		{
			name:    "empty shape name",
			shape:   "",
			fields:  []Field{{Name: "a", Kind: KindString}},
			wantErr: ErrShapeNameEmpty,
		},
		{
			name:    "duplicate field name",
			shape:   "Thing",
			fields:  []Field{{Name: "a", Kind: KindString}, {Name: "A", Kind: KindInt}},
			wantErr: ErrDuplicateField,
		},
		{
			name:  "duplicate alias",
			shape: "Thing",
			fields: []Field{
				{Name: "a", Alias: "col", Kind: KindString},
				{Name: "b", Alias: "COL", Kind: KindString},
			},
			wantErr: ErrDuplicateAlias,
		},
		{
			name:    "enum without variants",
			shape:   "Thing",
			fields:  []Field{{Name: "state", Kind: KindEnum}},
			wantErr: ErrEnumNoVariants,
		},
		{
			name:    "valid shape",
			shape:   "Thing",
			fields:  []Field{{Name: "a", Kind: KindString}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShape(tt.shape, "id", tt.fields, nil)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewShapeAppendsPrimaryKey(t *testing.T) {
	s, err := NewShape("Thing", "id", []Field{{Name: "a", Kind: KindString}}, nil)
	require.NoError(t, err)

	pk := s.ResolveField("id")
	require.NotNil(t, pk)
	assert.Equal(t, KindString, pk.Kind)
	assert.False(t, pk.Writable, "primary key must never be client-writable")
}

func TestNewRecordBlanks(t *testing.T) {
	s, err := NewShape("Thing", "id", []Field{
		{Name: "name", Kind: KindString},
		{Name: "active", Kind: KindBool},
		{Name: "count", Kind: KindInt},
		{Name: "ratio", Kind: KindFloat},
		{Name: "amount", Kind: KindDecimal},
		{Name: "when", Kind: KindDateTime},
		{Name: "state", Kind: KindEnum, Variants: []string{"open", "closed"}},
		{Name: "maybe", Kind: KindInt, Nullable: true},
	}, nil)
	require.NoError(t, err)

	rec := s.NewRecord()
	assert.Equal(t, "", rec["name"])
	assert.Equal(t, false, rec["active"])
	assert.Equal(t, int64(0), rec["count"])
	assert.Equal(t, float64(0), rec["ratio"])
	assert.True(t, rec["amount"].(decimal.Decimal).IsZero())
	assert.Equal(t, time.Time{}, rec["when"])
	assert.Equal(t, "open", rec["state"], "enum blanks to its first variant")
	assert.Nil(t, rec["maybe"])
}

func TestStringFields(t *testing.T) {
	s, err := NewShape("Thing", "id", []Field{
		{Name: "name", Kind: KindString},
		{Name: "count", Kind: KindInt},
		{Name: "note", Kind: KindString},
	}, nil)
	require.NoError(t, err)

	// The primary key is itself a string field and participates in
	// substring filtering like any other.
	assert.Equal(t, []string{"name", "note", "id"}, s.StringFields())
}
