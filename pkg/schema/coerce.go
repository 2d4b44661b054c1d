// Value coercion: converting untyped client scalars into the typed value a
// field declares. One coercion function per kind; the dispatch table is
// closed over the Kind set.
package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// DateTimeLayout is the single accepted date/time format. RFC 3339 is
// locale-invariant and round-trips through JSON unchanged.
const DateTimeLayout = time.RFC3339

// CoercionError describes an input value incompatible with a field's
// declared type. It is non-fatal to sibling fields; the orchestrator turns
// it into a client-facing rejection naming the field.
type CoercionError struct {
	Field  string
	Reason string
	Err    error // underlying conversion failure, when one exists
}

func (e *CoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %q: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *CoercionError) Unwrap() error { return e.Err }

func coercionErr(f *Field, reason string) *CoercionError {
	return &CoercionError{Field: f.Name, Reason: reason}
}

// zeroValue returns the kind's zero value for a blank record instance.
func zeroValue(f *Field) any {
	switch f.Kind {
	case KindString:
		return ""
	case KindBool:
		return false
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindDecimal:
		return decimal.Zero
	case KindDateTime:
		return time.Time{}
	case KindEnum:
		return f.Variants[0]
	default:
		return nil
	}
}

// Coerce converts raw into the typed value declared by f. A nil result with
// a nil error is a stored null. Rules, in precedence order:
//
//  1. nil input: accepted for nullable fields and for string fields, rejected
//     for every other non-nullable kind.
//  2. enum: case-sensitive match against the declared variants.
//  3. datetime: RFC 3339 parse of the string form.
//  4. bool: the lowercased string form must be exactly "true" or "false".
//  5. string: the string form, unconditionally.
//  6. decimal: base-10 decimal parse of the string form.
//  7. int/float: an empty or whitespace string form stores null when the
//     field is nullable and is rejected otherwise; anything else goes
//     through a generic numeric conversion.
func Coerce(raw any, f *Field) (any, error) {
	if raw == nil {
		if f.Nullable || f.Kind == KindString {
			return nil, nil
		}
		return nil, coercionErr(f, "field cannot be null")
	}

	switch f.Kind {
	case KindEnum:
		return coerceEnum(raw, f)
	case KindDateTime:
		return coerceDateTime(raw, f)
	case KindBool:
		return coerceBool(raw, f)
	case KindString:
		return cast.ToString(raw), nil
	case KindDecimal:
		return coerceDecimal(raw, f)
	case KindInt, KindFloat:
		return coerceNumeric(raw, f)
	default:
		return nil, coercionErr(f, fmt.Sprintf("unsupported kind %s", f.Kind))
	}
}

func coerceEnum(raw any, f *Field) (any, error) {
	value := cast.ToString(raw)
	for _, variant := range f.Variants {
		if value == variant {
			return variant, nil
		}
	}
	return nil, coercionErr(f, fmt.Sprintf(
		"invalid value %q, expected one of: %s", value, strings.Join(f.Variants, ", ")))
}

func coerceDateTime(raw any, f *Field) (any, error) {
	if t, ok := raw.(time.Time); ok {
		return t, nil
	}
	t, err := time.Parse(DateTimeLayout, cast.ToString(raw))
	if err != nil {
		return nil, coercionErr(f, fmt.Sprintf(
			"invalid datetime %q, expected %s format", cast.ToString(raw), DateTimeLayout))
	}
	return t, nil
}

func coerceBool(raw any, f *Field) (any, error) {
	switch strings.ToLower(cast.ToString(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, coercionErr(f, fmt.Sprintf(
		"invalid boolean %q, expected true or false", cast.ToString(raw)))
}

func coerceDecimal(raw any, f *Field) (any, error) {
	d, err := decimal.NewFromString(cast.ToString(raw))
	if err != nil {
		return nil, &CoercionError{
			Field:  f.Name,
			Reason: fmt.Sprintf("invalid decimal %q", cast.ToString(raw)),
			Err:    err,
		}
	}
	return d, nil
}

// coerceNumeric handles the int and float kinds. A string input that is
// empty or all whitespace stores null for nullable fields; for non-nullable
// fields it is rejected rather than silently nulled.
func coerceNumeric(raw any, f *Field) (any, error) {
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		if f.Nullable {
			return nil, nil
		}
		return nil, coercionErr(f, "numeric field cannot be empty")
	}

	switch f.Kind {
	case KindInt:
		n, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, &CoercionError{
				Field:  f.Name,
				Reason: fmt.Sprintf("cannot convert %v to int", raw),
				Err:    err,
			}
		}
		return n, nil
	default:
		n, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, &CoercionError{
				Field:  f.Name,
				Reason: fmt.Sprintf("cannot convert %v to float", raw),
				Err:    err,
			}
		}
		return n, nil
	}
}
