package schema

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(name string, kind Kind, nullable bool) *Field {
	return &Field{Name: name, Kind: kind, Nullable: nullable}
}

func TestCoerceNull(t *testing.T) {
	tests := []struct {
		name    string
		field   *Field
		wantErr bool
	}{
		{"nullable int accepts null", field("n", KindInt, true), false},
		{"string accepts null", field("s", KindString, false), false},
		{"non-nullable int rejects null", field("n", KindInt, false), true},
		{"non-nullable bool rejects null", field("b", KindBool, false), true},
		{"non-nullable datetime rejects null", field("d", KindDateTime, false), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(nil, tt.field)
			if tt.wantErr {
				var cerr *CoercionError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.field.Name, cerr.Field)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestCoerceBool(t *testing.T) {
	f := field("active", KindBool, false)

	tests := []struct {
		raw     any
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"false", false, false},
		{"TRUE", true, false},
		{"False", false, false},
		{true, true, false},
		{"yes", false, true},
		{"1", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.raw), func(t *testing.T) {
			got, err := Coerce(tt.raw, f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceNumericRoundTrip(t *testing.T) {
	intField := field("count", KindInt, false)
	for _, n := range []int64{0, 1, -1, 42, 1 << 40} {
		got, err := Coerce(fmt.Sprintf("%d", n), intField)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}

	floatField := field("ratio", KindFloat, false)
	for _, n := range []float64{0, 0.5, -3.25, 1e6} {
		got, err := Coerce(fmt.Sprintf("%v", n), floatField)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestCoerceNumericEmptyString(t *testing.T) {
	t.Run("nullable stores null", func(t *testing.T) {
		got, err := Coerce("   ", field("n", KindInt, true))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("non-nullable rejects", func(t *testing.T) {
		_, err := Coerce("", field("n", KindInt, false))
		var cerr *CoercionError
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, cerr.Error(), "n")
	})
}

func TestCoerceNumericFromJSONNumber(t *testing.T) {
	// JSON bodies decode numbers to float64; both numeric kinds must take
	// them without a string detour.
	got, err := Coerce(float64(7), field("count", KindInt, false))
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = Coerce(float64(2.5), field("ratio", KindFloat, false))
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)
}

func TestCoerceDecimal(t *testing.T) {
	f := field("income", KindDecimal, false)

	got, err := Coerce("1000.50", f)
	require.NoError(t, err)
	assert.True(t, got.(decimal.Decimal).Equal(decimal.RequireFromString("1000.50")))

	got, err = Coerce(float64(200), f)
	require.NoError(t, err)
	assert.True(t, got.(decimal.Decimal).Equal(decimal.NewFromInt(200)))

	_, err = Coerce("12,5", f)
	var cerr *CoercionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "income", cerr.Field)
	assert.Error(t, cerr.Unwrap(), "decimal errors carry the parser failure")
}

func TestCoerceDateTime(t *testing.T) {
	f := field("when", KindDateTime, false)

	got, err := Coerce("2024-03-01T12:30:00Z", f)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), got)

	now := time.Now().UTC()
	got, err = Coerce(now, f)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	_, err = Coerce("01/03/2024", f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), time.RFC3339, "error names the expected format")
}

func TestCoerceEnum(t *testing.T) {
	f := &Field{Name: "kind", Kind: KindEnum, Variants: []string{"income", "expense"}}

	got, err := Coerce("income", f)
	require.NoError(t, err)
	assert.Equal(t, "income", got)

	_, err = Coerce("Income", f)
	require.Error(t, err, "variant match is case-sensitive")
	assert.Contains(t, err.Error(), "income, expense", "error enumerates the variants")
}

func TestCoerceString(t *testing.T) {
	f := field("title", KindString, false)

	got, err := Coerce("plain", f)
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	// Any scalar's string form is accepted unconditionally.
	got, err = Coerce(float64(12), f)
	require.NoError(t, err)
	assert.Equal(t, "12", got)
}
