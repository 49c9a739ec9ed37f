package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the type carried by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar or list cell.
// The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	list []Value
}

// Null returns the null value
func Null() Value { return Value{} }

// String builds a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int builds an integer value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float builds a float value
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool builds a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List builds a list value from its elements
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Kind returns the tag of v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v carries no value
func (v Value) IsNull() bool { return v.kind == KindNull }

// Items returns the elements of a list value (nil for scalars)
func (v Value) Items() []Value { return v.list }

// ValueOf converts a native Go value into a Value.
// Accepts the types produced by JSON decoding and by the Neo4j driver
// (string, int64, float64, bool, []any, nil) plus the common Go numeric types.
// A float NaN or ±Inf is treated as null, matching how missing cells arrive from dataframes.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return ValueOf(uint64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return Float(float64(t))
		}
		return Int(int64(t))
	case float32:
		return ValueOf(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Null()
		}
		return Float(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		if f, err := t.Float64(); err == nil {
			return Float(f)
		}
		return String(t.String())
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindList, list: items}
	case []float64:
		items := make([]Value, len(t))
		for i, f := range t {
			items[i] = ValueOf(f)
		}
		return Value{kind: KindList, list: items}
	case []int64:
		items := make([]Value, len(t))
		for i, n := range t {
			items[i] = Int(n)
		}
		return Value{kind: KindList, list: items}
	case []int:
		items := make([]Value, len(t))
		for i, n := range t {
			items[i] = Int(int64(n))
		}
		return Value{kind: KindList, list: items}
	case []bool:
		items := make([]Value, len(t))
		for i, b := range t {
			items[i] = Bool(b)
		}
		return Value{kind: KindList, list: items}
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = ValueOf(e)
		}
		return Value{kind: KindList, list: items}
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Native returns the plain Go representation used for driver parameters and JSON
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// AsString coerces a scalar to its string form. Null and list values do not coerce.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// AsFloat coerces numeric values to float64
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Equal compares two values structurally
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	if s, ok := v.AsString(); ok {
		return s
	}
	if v.kind == KindList {
		return fmt.Sprintf("%v", v.Native())
	}
	return "<null>"
}

// wireValue keeps the kind on disk so ints survive a JSON round trip
type wireValue struct {
	K Kind              `json:"k"`
	S string            `json:"s,omitempty"`
	I int64             `json:"i,omitempty"`
	F float64           `json:"f,omitempty"`
	B bool              `json:"b,omitempty"`
	L []json.RawMessage `json:"l,omitempty"`
}

// MarshalJSON implements json.Marshaler. Non-finite floats are written as null.
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{K: v.kind, S: v.s, I: v.i, F: v.f, B: v.b}
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		w = wireValue{K: KindNull}
	}
	if v.kind == KindList {
		w.L = make([]json.RawMessage, len(v.list))
		for i, e := range v.list {
			raw, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			w.L[i] = raw
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = Value{kind: w.K, s: w.S, i: w.I, f: w.F, b: w.B}
	if w.K == KindList {
		v.list = make([]Value, len(w.L))
		for i, raw := range w.L {
			if err := v.list[i].UnmarshalJSON(raw); err != nil {
				return err
			}
		}
	}
	return nil
}
