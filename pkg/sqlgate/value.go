package sqlgate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BearHuddleston/employee-mcp-server/pkg/store"
)

// Value is a sealed interface for the scalar column values a row can hold.
// Only Null, Bool, Int, Float and Text implement it.
type Value interface {
	scalar()
}

// Row maps column names to values. Column order is not preserved.
type Row map[string]Value

// Null is SQL NULL.
type Null struct{}

func (Null) scalar() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool is a boolean column value.
type Bool bool

func (Bool) scalar() {}

// Int is an integer column value.
type Int int64

func (Int) scalar() {}

// Float is a floating point column value.
type Float float64

func (Float) scalar() {}

// MarshalJSON keeps a decimal point on integral floats so REAL columns stay
// distinguishable from INTEGER ones. Non-finite values encode as null.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return []byte(s), nil
}

// Text is a string column value.
type Text string

func (Text) scalar() {}

// FromDriver converts a value produced by database/sql into a Value.
func FromDriver(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(x)
	case int64:
		return Int(x)
	case int:
		return Int(x)
	case int32:
		return Int(x)
	case float64:
		return Float(x)
	case float32:
		return Float(x)
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case time.Time:
		return Text(store.FormatTime(x))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n)
		}
		if f, err := x.Float64(); err == nil {
			return Float(f)
		}
		return Text(x.String())
	default:
		return Text(fmt.Sprint(x))
	}
}
