package envelope

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Kinds(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
		json string
	}{
		{"zero", Value{}, KindNull, `null`},
		{"bool", Bool(true), KindBool, `true`},
		{"string", String("BTC"), KindString, `"BTC"`},
		{"uint", Uint(18446744073709551615), KindNumber, `18446744073709551615`},
		{"int", Int(-3), KindNumber, `-3`},
		{"float", Float(0.5), KindNumber, `0.5`},
		{"nan", Float(math.NaN()), KindNull, `null`},
		{"inf", Float(math.Inf(1)), KindNull, `null`},
		{"number", Number(json.Number("1e3")), KindNumber, `1e3`},
		{"array", Array(Int(1), String("x")), KindArray, `[1,"x"]`},
		{"object", Object(F("b", Int(2)), F("a", Int(1))), KindObject, `{"a":1,"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.v.Kind())
			assert.Equal(t, tt.json, tt.v.String())
		})
	}
}

func TestValue_Decimal(t *testing.T) {
	d, _, err := apd.NewFromString("1.2E-3")
	require.NoError(t, err)

	v := Decimal(d)
	n, ok := v.AsNumber()
	require.True(t, ok)
	assert.Equal(t, json.Number("0.0012"), n)

	assert.True(t, Decimal(nil).IsNull())

	back, ok := String("241.9477").AsDecimal()
	require.True(t, ok)
	assert.Equal(t, "241.9477", back.Text('f'))

	_, ok = String("abc").AsDecimal()
	assert.False(t, ok)
	_, ok = Bool(true).AsDecimal()
	assert.False(t, ok)
}

func TestValue_Accessors(t *testing.T) {
	obj := Object(F("pair", Strings("BTC", "USD")), F("n", Uint(7)))

	pair, ok := obj.Get("pair")
	require.True(t, ok)
	assert.Equal(t, 2, pair.Len())
	assert.True(t, pair.Index(5).IsNull())
	assert.Len(t, pair.Items(), 2)

	n, _ := obj.Get("n")
	u, ok := n.AsUint()
	assert.True(t, ok)
	assert.Equal(t, uint64(7), u)

	_, ok = Int(-1).AsUint()
	assert.False(t, ok)

	_, ok = obj.Get("missing")
	assert.False(t, ok)
	_, ok = pair.Get("pair")
	assert.False(t, ok)

	assert.Equal(t, []string{"n", "pair"}, obj.Keys())
	assert.Nil(t, pair.Keys())
}

func TestValue_AsString(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   string
		wantOK bool
	}{
		{"string", String("md"), "md", true},
		{"number_text", Number("42"), "", false},
		{"int", Int(42), "", false},
		{"bool", Bool(true), "", false},
		{"null", Null(), "", false},
		{"array", Strings("BTC", "USD"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.AsString()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	env, err := Parse(`{"e":42,"reason":7}`)
	require.NoError(t, err)
	tag, ok := env.Tag()
	assert.False(t, ok)
	assert.Empty(t, tag)
	reason, _ := env.Field("reason").AsString()
	assert.Empty(t, reason)
}

func TestValue_WithCopies(t *testing.T) {
	orig := Object(F("a", Int(1)))
	updated := orig.With("b", Int(2))

	_, ok := orig.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, updated.Len())

	s := String("x")
	assert.True(t, s.Equal(s.With("b", Int(2))))

	items := []Value{Int(1)}
	arr := Array(items...)
	items[0] = Int(9)
	assert.True(t, arr.Index(0).Equal(Int(1)))
}

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", Null(), Value{}, true},
		{"kind_mismatch", String("1"), Int(1), false},
		{"number_text", Number("1"), Number("1.0"), false},
		{"arrays", Strings("a", "b"), Strings("a", "b"), true},
		{"array_order", Strings("a", "b"), Strings("b", "a"), false},
		{"objects", Object(F("x", Bool(true))), Object(F("x", Bool(true))), true},
		{"object_member", Object(F("x", Bool(true))), Object(F("x", Bool(false))), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"big":12345678901234567890,"list":[null,false,"s"]}`), &v))

	big, _ := v.Get("big")
	n, ok := big.AsNumber()
	require.True(t, ok)
	assert.Equal(t, json.Number("12345678901234567890"), n)

	list, _ := v.Get("list")
	assert.True(t, list.Index(0).IsNull())
	b, ok := list.Index(1).AsBool()
	assert.True(t, ok)
	assert.False(t, b)

	assert.Error(t, v.UnmarshalJSON([]byte(`[`)))
}
