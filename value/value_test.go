package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/objbridge/errors"
)

func TestReadString(t *testing.T) {
	s, err := ReadString(String("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	_, err = ReadString(Double(1))
	require.Error(t, err)
	assert.Equal(t, errors.KindNotString, errors.KindOf(err))
	assert.True(t, IsString(String("")))
	assert.False(t, IsString(Empty{}))
}

func TestReadHandleToken(t *testing.T) {
	tok, err := ReadHandleToken(MakeHandleCell(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), tok)

	for _, c := range []Cell{Double(5), String("5"), Empty{}, Vector{5}} {
		_, err := ReadHandleToken(c)
		require.Error(t, err, "%v", c)
		assert.Equal(t, errors.KindInvalidHandle, errors.KindOf(err))
	}
}

func TestReadScalarAndInt(t *testing.T) {
	tests := []struct {
		in   Cell
		want float64
		ok   bool
	}{
		{Double(2.5), 2.5, true},
		{Uint64(7), 7, true},
		{Bool(true), 1, true},
		{Vector{3}, 3, true},
		{Vector{1, 2}, 0, false},
		{String("x"), 0, false},
		{Empty{}, 0, false},
	}
	for _, tt := range tests {
		got, err := ReadScalar(tt.in)
		if !tt.ok {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	n, err := ReadInt(Double(-4))
	require.NoError(t, err)
	assert.Equal(t, -4, n)

	_, err = ReadInt(Double(1.5))
	require.Error(t, err)
	assert.Equal(t, "notInteger", errors.IDOf(err))

	_, err = ReadInt(Double(math.Inf(1)))
	assert.Error(t, err)

	_, err = ReadInt(Bool(true))
	assert.Error(t, err)
	_, err = ReadNumber(Bool(false))
	assert.Error(t, err)
	f, err := ReadNumber(Uint64(9))
	require.NoError(t, err)
	assert.Equal(t, 9.0, f)
}

func TestReadFloats(t *testing.T) {
	fs, err := ReadFloats(Empty{})
	require.NoError(t, err)
	assert.Empty(t, fs)

	fs, err = ReadFloats(Double(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, fs)

	v := Vector{1, 2}
	fs, err = ReadFloats(v)
	require.NoError(t, err)
	fs[0] = 9
	assert.Equal(t, 1.0, v[0], "ReadFloats must copy")

	_, err = ReadFloats(String("1"))
	assert.Error(t, err)
}

func TestMakeVector(t *testing.T) {
	assert.Equal(t, Empty{}, MakeVector(nil))
	src := []float64{1, 2}
	c := MakeVector(src)
	src[0] = 5
	assert.Equal(t, Vector{1, 2}, c)
}

func TestStructOrder(t *testing.T) {
	s := NewStruct().Set("b", Double(1)).Set("a", Double(2)).Set("b", Double(3))
	assert.Equal(t, []string{"b", "a"}, s.Names())
	f, ok := s.Field("b")
	require.True(t, ok)
	assert.Equal(t, Double(3), f)
	assert.Equal(t, 2, s.Len())
}

func TestObjectProperties(t *testing.T) {
	o := NewInstance("Counter", "label")
	assert.Equal(t, []string{BackendProperty, "label"}, o.PropertyNames())
	assert.True(t, o.HasProperty(BackendProperty))

	require.NoError(t, o.SetProperty("label", String("x")))
	assert.Error(t, o.SetProperty("missing", String("x")))

	p, ok := o.Property("label")
	require.True(t, ok)
	assert.Equal(t, String("x"), p)

	b, _ := o.Property(BackendProperty)
	assert.True(t, IsEmpty(b))

	c := o.Clone()
	require.NoError(t, c.SetProperty("label", String("y")))
	p, _ = o.Property("label")
	assert.Equal(t, String("x"), p)
	assert.Equal(t, o.PropertyNames(), c.PropertyNames())
	assert.Equal(t, "Counter", c.Class())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Empty{}, Vector{}))
	assert.True(t, Equal(nil, Empty{}))
	assert.True(t, Equal(Vector{1, 2}, Vector{1, 2}))
	assert.False(t, Equal(Vector{1, 2}, Vector{1}))
	assert.False(t, Equal(Double(1), Uint64(1)))
	assert.True(t, Equal(
		NewStruct().Set("A", Double(1)),
		NewStruct().Set("A", Double(1)),
	))
	assert.False(t, Equal(
		NewStruct().Set("A", Double(1)),
		NewStruct().Set("A", Double(2)),
	))
	o := NewObject("X")
	assert.True(t, Equal(o, o))
	assert.False(t, Equal(o, NewObject("X")))
}

func TestWireRoundTrip(t *testing.T) {
	obj := NewInstance("Counter")
	require.NoError(t, obj.SetProperty(BackendProperty, Uint64(math.MaxUint64)))

	cells := []Cell{
		Empty{},
		String("hello \"world\""),
		Double(1.25),
		Double(math.Inf(-1)),
		Vector{1, math.Inf(1), -2},
		Uint64(math.MaxUint64),
		Bool(true),
		NewStruct().Set("A", Double(3)).Set("C", String("x")),
		obj,
	}

	data, err := json.Marshal(Wires(cells))
	require.NoError(t, err)

	var decoded []Wire
	require.NoError(t, json.Unmarshal(data, &decoded))
	got := Cells(decoded)
	require.Len(t, got, len(cells))

	for i := range cells[:len(cells)-1] {
		assert.True(t, Equal(cells[i], got[i]), "cell %d: %v != %v", i, cells[i], got[i])
	}

	o, ok := got[len(got)-1].(*Object)
	require.True(t, ok)
	assert.Equal(t, "Counter", o.Class())
	b, _ := o.Property(BackendProperty)
	assert.Equal(t, Uint64(math.MaxUint64), b)
}

func TestWireNaN(t *testing.T) {
	data, err := json.Marshal(Wire{Cell: Double(math.NaN())})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"double","value":"NaN"}`, string(data))

	var w Wire
	require.NoError(t, json.Unmarshal(data, &w))
	d, ok := w.Cell.(Double)
	require.True(t, ok)
	assert.True(t, math.IsNaN(float64(d)))
}

func TestWireDecodeErrors(t *testing.T) {
	for _, in := range []string{
		`{"type":"nope"}`,
		`{"type":"double","value":"many"}`,
		`{"type":"object"}`,
		`{"type":"uint64","value":"-1"}`,
	} {
		var w Wire
		assert.Error(t, json.Unmarshal([]byte(in), &w), in)
	}

	var w Wire
	require.NoError(t, json.Unmarshal([]byte(`{"type":"uint64","value":42}`), &w))
	assert.Equal(t, Uint64(42), w.Cell)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Cell
	}{
		{"", Empty{}},
		{"[]", Empty{}},
		{"'abc'", String("abc")},
		{`"a b"`, String("a b")},
		{"1.5", Double(1.5)},
		{"[1 2, 3]", Vector{1, 2, 3}},
		{"[1 x]", String("[1 x]")},
		{"true", Bool(true)},
		{"u64:42", Uint64(42)},
		{"value", String("value")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parse(tt.in), tt.in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "[]", Format(Empty{}))
	assert.Equal(t, `"x"`, Format(String("x")))
	assert.Equal(t, "[1 2.5]", Format(Vector{1, 2.5}))
	assert.Equal(t, "uint64(3)", Format(Uint64(3)))
	assert.Equal(t, "{A: 1, C: \"c\"}", Format(NewStruct().Set("A", Double(1)).Set("C", String("c"))))
	assert.Equal(t, "<Counter backend=[]>", Format(NewInstance("Counter")))
}

func TestFromGo(t *testing.T) {
	c, err := FromGo(map[string]any{
		"b": []any{1, 2.5},
		"a": "x",
		"c": nil,
	})
	require.NoError(t, err)
	s, ok := c.(*Struct)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	b, _ := s.Field("b")
	assert.Equal(t, Vector{1, 2.5}, b)

	_, err = FromGo([]any{"x"})
	assert.Error(t, err)
	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}
