package dataset

import (
	"fmt"
	"strconv"
	"time"
)

// Value is a single cell. The zero Value is null.
type Value struct {
	raw     any
	present bool
}

// Null returns an absent value with no raw content.
func Null() Value {
	return Value{}
}

// Text classifies s with the given policy and returns the resulting value.
// The raw text is kept even when the policy treats it as absent.
func Text(s string, policy NullPolicy) Value {
	if policy.IsNull(s) {
		if s == "" {
			return Value{}
		}
		return Value{raw: s}
	}
	return Value{raw: s, present: true}
}

// String returns a present text value, bypassing any null policy.
func String(s string) Value {
	return Value{raw: s, present: true}
}

// Int returns a present integer value.
func Int(n int) Value {
	return Value{raw: n, present: true}
}

// Of wraps an already-typed value. nil yields Null.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{}
	case Value:
		return x
	case []byte:
		return Value{raw: string(x), present: true}
	default:
		return Value{raw: x, present: true}
	}
}

// IsNull reports whether the value counts as absent.
func (v Value) IsNull() bool {
	return !v.present
}

// Raw returns the underlying Go value (string, int, int64, float64, bool,
// time.Time) or nil.
func (v Value) Raw() any {
	return v.raw
}

// String renders the value as text. Null values without raw content render
// as the empty string.
func (v Value) String() string {
	switch x := v.raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(x)
	}
}

// IsInt reports whether the value holds an integer.
func (v Value) IsInt() bool {
	switch v.raw.(type) {
	case int, int64:
		return v.present
	}
	return false
}
