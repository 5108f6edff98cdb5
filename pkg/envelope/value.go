package envelope

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON name of the kind.
func (k Kind) String() string {
	return [...]string{"null", "bool", "number", "string", "array", "object"}[k]
}

// Value is an immutable JSON value: null, bool, number, string, array or
// object. Numbers keep their decimal text so 64-bit integers and exchange
// amounts survive a round trip unchanged. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string
	arr  []Value
	obj  map[string]Value
}

// Field is a single object member used to build objects.
type Field struct {
	Key   string
	Value Value
}

// F is shorthand for a Field.
func F(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

func Null() Value {
	return Value{}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Number wraps an already formatted JSON number.
func Number(n json.Number) Value {
	return Value{kind: KindNumber, s: n.String()}
}

func Uint(u uint64) Value {
	return Value{kind: KindNumber, s: strconv.FormatUint(u, 10)}
}

func Int(i int64) Value {
	return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)}
}

// Float wraps f as a number. NaN and infinities have no JSON form and become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Decimal wraps d as a number in plain (non-exponent) notation.
func Decimal(d *apd.Decimal) Value {
	if d == nil || d.Form != apd.Finite {
		return Null()
	}
	return Value{kind: KindNumber, s: d.Text('f')}
}

// Array builds an array value holding a copy of items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: slices.Clone(items)}
}

// Strings builds an array of string values.
func Strings(items ...string) Value {
	arr := make([]Value, len(items))
	for i, s := range items {
		arr[i] = String(s)
	}
	return Value{kind: KindArray, arr: arr}
}

// Object builds an object value. A repeated key keeps its last value.
func Object(fields ...Field) Value {
	obj := make(map[string]Value, len(fields))
	for _, f := range fields {
		obj[f.Key] = f.Value
	}
	return Value{kind: KindObject, obj: obj}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsString returns the string and true if v is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the boolean and true if v is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns the number text and true if v is a number.
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

// AsUint returns v as an unsigned integer when it is a number without
// fraction or sign.
func (v Value) AsUint() (uint64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	u, err := strconv.ParseUint(v.s, 10, 64)
	return u, err == nil
}

// AsDecimal parses a number, or a string holding a number, into an apd.Decimal.
// The exchange sends amounts in both forms.
func (v Value) AsDecimal() (*apd.Decimal, bool) {
	if v.kind != KindNumber && v.kind != KindString {
		return nil, false
	}
	d, _, err := apd.NewFromString(v.s)
	if err != nil {
		return nil, false
	}
	return d, true
}

// Len returns the number of elements of an array or members of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	}
	return 0
}

// Index returns the i-th element of an array, or null when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Null()
	}
	return v.arr[i]
}

// Items returns a copy of the array elements.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return slices.Clone(v.arr)
}

// Get returns the member stored under key and whether it was present.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	m, ok := v.obj[key]
	return m, ok
}

// Keys returns the object keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return slices.Sorted(maps.Keys(v.obj))
}

// With returns a copy of the object with key set to m. Non-object values are
// returned unchanged.
func (v Value) With(key string, m Value) Value {
	if v.kind != KindObject {
		return v
	}
	obj := maps.Clone(v.obj)
	if obj == nil {
		obj = make(map[string]Value, 1)
	}
	obj[key] = m
	return Value{kind: KindObject, obj: obj}
}

// Equal reports structural equality. Numbers compare by their text, so 1 and
// 1.0 are different values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.s == o.s
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case KindObject:
		return maps.EqualFunc(v.obj, o.obj, Value.Equal)
	}
	return false
}

// MarshalJSON implements json.Marshaler. Object keys are written in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(v.native())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := fromNative(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// String renders the value as compact JSON.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return string(data)
}

func (v Value) native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.native()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, m := range v.obj {
			out[k] = m.native()
		}
		return out
	}
	return nil
}

func fromNative(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return Number(x), nil
	case float64:
		return Float(x), nil
	case int64:
		return Int(x), nil
	case []any:
		arr := make([]Value, len(x))
		for i, item := range x {
			val, err := fromNative(item)
			if err != nil {
				return Null(), err
			}
			arr[i] = val
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Value, len(x))
		for k, item := range x {
			val, err := fromNative(item)
			if err != nil {
				return Null(), err
			}
			obj[k] = val
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return Null(), fmt.Errorf("unsupported json type %T", raw)
	}
}
