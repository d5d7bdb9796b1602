// Package value models legacy runtime values as the feature processors see
// them: zero values per declared type, fixed-length strings, records and
// a few numeric coercions.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is any legacy runtime value. Numbers are int64 or float64,
// strings are string, Booleans are bool, dates are time.Time, records are
// *Record and objects implement Object. Nothing and Empty are nil.
type Value = any

// Epoch is the zero value of a Date.
var Epoch = time.Unix(0, 0).UTC()

// Object is a reference value such as a class instance.
type Object interface {
	ClassName() string
}

// Zero returns the zero value for a declared type name. The name is
// matched case-insensitively; unknown names (Variant, Object, classes)
// get nil.
func Zero(typeName string) Value {
	switch strings.ToLower(strings.TrimSpace(typeName)) {
	case "byte", "integer", "long", "longlong", "longptr":
		return int64(0)
	case "single", "double", "currency", "decimal":
		return 0.0
	case "string":
		return ""
	case "boolean":
		return false
	case "date":
		return Epoch
	}
	return nil
}

// IsNumericType reports whether typeName is one of the numeric types.
func IsNumericType(typeName string) bool {
	switch Zero(typeName).(type) {
	case int64, float64:
		return true
	}
	return false
}

// IsReference reports whether v is a record or an object, the values a
// Property Let may not receive and a Property Set requires.
func IsReference(v Value) bool {
	switch v.(type) {
	case *Record, Object:
		return true
	}
	return false
}

// FixedString pads s with spaces or truncates it to exactly n characters.
func FixedString(s string, n int) string {
	r := []rune(s)
	if len(r) >= n {
		return string(r[:n])
	}
	return s + strings.Repeat(" ", n-len(r))
}

// ToNumber coerces v to a float64. Strings are parsed; Booleans follow
// the legacy convention (True is -1).
func ToNumber(v Value) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case bool:
		if n {
			return -1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("type mismatch: %q is not a number", n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("type mismatch: %T is not a number", v)
}

// Add sums two numeric values, keeping integers integral while the result
// fits.
func Add(a, b Value) (Value, error) {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		sum := ai + bi
		if (sum > ai) == (bi > 0) {
			return sum, nil
		}
	}
	af, err := ToNumber(a)
	if err != nil {
		return nil, err
	}
	bf, err := ToNumber(b)
	if err != nil {
		return nil, err
	}
	return af + bf, nil
}

func asInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), true
		}
	}
	return 0, false
}

// Format renders v the way the legacy runtime prints it.
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format("1/2/2006")
	case *Record:
		return x.String()
	case Object:
		return x.ClassName()
	}
	return fmt.Sprint(v)
}
