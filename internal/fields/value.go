package fields

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type valueKind uint8

const (
	kindFailure valueKind = iota
	kindString
	kindInteger
)

// Value is a coerced field value or a failure marker. The zero Value is a
// failure marker with no reason.
type Value struct {
	kind   valueKind
	str    string
	num    int64
	reason string
}

// StringValue returns a successful string value.
func StringValue(s string) Value { return Value{kind: kindString, str: s} }

// IntValue returns a successful integer value.
func IntValue(n int64) Value { return Value{kind: kindInteger, num: n} }

// Failure returns a failure marker carrying a diagnostic reason.
func Failure(reason string) Value { return Value{kind: kindFailure, reason: reason} }

// OK reports whether v holds a value.
func (v Value) OK() bool { return v.kind != kindFailure }

// Reason returns the diagnostic reason of a failure marker.
func (v Value) Reason() string { return v.reason }

// Str returns the string value, if v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == kindString }

// Int returns the integer value, if v is an integer.
func (v Value) Int() (int64, bool) { return v.num, v.kind == kindInteger }

// Any returns nil, a string or an int64.
func (v Value) Any() any {
	switch v.kind {
	case kindString:
		return v.str
	case kindInteger:
		return v.num
	default:
		return nil
	}
}

// String renders the value as text; failures render as "".
func (v Value) String() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindInteger:
		return strconv.FormatInt(v.num, 10)
	default:
		return ""
	}
}

// Equal compares kind and payload; failure reasons are ignored.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case kindString:
		return v.str == o.str
	case kindInteger:
		return v.num == o.num
	default:
		return true
	}
}

// MarshalJSON renders failures as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindInteger:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	default:
		return []byte("null"), nil
	}
}

// Values maps every key of a SpecSet to a Value, in spec order.
type Values struct {
	keys []string
	vals map[string]Value
}

// NewValues returns Values holding one failure marker per spec key.
func NewValues(specs SpecSet, reason string) Values {
	vs := Values{
		keys: specs.Keys(),
		vals: make(map[string]Value, specs.Len()),
	}
	for _, k := range vs.keys {
		vs.vals[k] = Failure(reason)
	}
	return vs
}

// Set stores v under key. Keys outside the spec set are ignored and reported false.
func (vs Values) Set(key string, v Value) bool {
	if _, ok := vs.vals[key]; !ok {
		return false
	}
	vs.vals[key] = v
	return true
}

// Fail replaces every value with a failure marker carrying reason.
func (vs Values) Fail(reason string) {
	for _, k := range vs.keys {
		vs.vals[k] = Failure(reason)
	}
}

// Get returns the value stored for key.
func (vs Values) Get(key string) (Value, bool) {
	v, ok := vs.vals[key]
	return v, ok
}

// Keys returns the keys in spec order.
func (vs Values) Keys() []string {
	out := make([]string, len(vs.keys))
	copy(out, vs.keys)
	return out
}

// Len returns the number of entries.
func (vs Values) Len() int { return len(vs.keys) }

// Matched counts successful values.
func (vs Values) Matched() int {
	n := 0
	for _, v := range vs.vals {
		if v.OK() {
			n++
		}
	}
	return n
}

// Map returns key -> nil|string|int64.
func (vs Values) Map() map[string]any {
	out := make(map[string]any, len(vs.keys))
	for _, k := range vs.keys {
		out[k] = vs.vals[k].Any()
	}
	return out
}

// Reasons returns the failure reasons of unsuccessful keys.
func (vs Values) Reasons() map[string]string {
	out := make(map[string]string)
	for _, k := range vs.keys {
		if v := vs.vals[k]; !v.OK() && v.reason != "" {
			out[k] = v.reason
		}
	}
	return out
}

// MarshalJSON renders an object in spec order.
func (vs Values) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range vs.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := vs.vals[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
