package value_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidNery/ConfigHelper/value"
)

func TestKinds_AccessorsAreStrict(t *testing.T) {
	i := value.Int(3)
	_, ok := i.AsFloat()
	assert.False(t, ok, "integers are not widened")
	n, ok := i.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	f := value.Float(3)
	_, ok = f.AsInt()
	assert.False(t, ok, "floats are not truncated")

	assert.True(t, value.Absent().IsAbsent())
	assert.False(t, value.String("").IsAbsent())
	assert.True(t, value.Of(nil).IsTree())
	assert.Equal(t, 0, value.Of(nil).Len())
}

func TestKind_IsScalar(t *testing.T) {
	assert.True(t, value.KindString.IsScalar())
	assert.True(t, value.KindBool.IsScalar())
	assert.False(t, value.KindList.IsScalar())
	assert.False(t, value.KindTree.IsScalar())
	assert.False(t, value.KindAbsent.IsScalar())
}

func TestList_CopiesItems(t *testing.T) {
	items := []value.Value{value.Int(1), value.Int(2)}
	l := value.List(items...)
	items[0] = value.Int(99)
	assert.True(t, l.Index(0).Equal(value.Int(1)))
	assert.True(t, l.Index(5).IsAbsent())

	got, _ := l.AsList()
	got[1] = value.Int(42)
	assert.True(t, l.Index(1).Equal(value.Int(2)))
}

func TestEqual(t *testing.T) {
	a := value.Of(value.NewTree(
		value.Pair{Key: "x", Value: value.Int(1)},
		value.Pair{Key: "y", Value: value.List(value.String("a"))},
	))
	b := value.Of(value.NewTree(
		value.Pair{Key: "y", Value: value.List(value.String("a"))},
		value.Pair{Key: "x", Value: value.Int(1)},
	))
	assert.True(t, a.Equal(b), "tree order is not significant")
	assert.False(t, value.Int(1).Equal(value.Float(1)))
	assert.True(t, value.Float(math.NaN()).Equal(value.Float(math.NaN())))
	assert.Empty(t, cmp.Diff(a, b))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{-2, "-2.0"},
		{0.25, "0.25"},
		{1e21, "1e+21"},
		{math.Inf(1), "+Inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, value.FormatFloat(tt.in))
	}
}

func TestFromAny(t *testing.T) {
	v, err := value.FromAny(map[string]any{
		"b":    []any{1, "two", 3.5, true, nil},
		"a":    uint16(7),
		"tree": value.NewTree(value.Pair{Key: "k", Value: value.String("v")}),
	})
	require.NoError(t, err)

	tree, ok := v.AsTree()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "tree"}, tree.Keys(), "map keys are sorted")

	want := value.Of(value.NewTree(
		value.Pair{Key: "a", Value: value.Int(7)},
		value.Pair{Key: "b", Value: value.List(value.Int(1), value.String("two"), value.Float(3.5), value.Bool(true), value.Absent())},
		value.Pair{Key: "tree", Value: value.Of(value.NewTree(value.Pair{Key: "k", Value: value.String("v")}))},
	))
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("FromAny mismatch (-want +got):\n%s", diff)
	}
}

func TestFromAny_Errors(t *testing.T) {
	_, err := value.FromAny(uint64(math.MaxUint64))
	assert.Error(t, err)

	_, err = value.FromAny(struct{}{})
	assert.Error(t, err)

	_, err = value.FromAny([]any{1, struct{}{}})
	assert.ErrorContains(t, err, "index 1")
}

func TestInterface_RoundTrip(t *testing.T) {
	in := map[string]any{
		"n":    int64(1),
		"f":    2.5,
		"s":    "x",
		"list": []any{true, int64(2)},
		"sub":  map[string]any{"k": "v"},
	}
	v, err := value.FromAny(in)
	require.NoError(t, err)
	assert.Equal(t, in, v.Interface())
	assert.Nil(t, value.Absent().Interface())
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		in   string
		want value.Value
	}{
		{"42", value.Int(42)},
		{"-7", value.Int(-7)},
		{"1.5", value.Float(1.5)},
		{"1e3", value.Float(1000)},
		{"true", value.Bool(true)},
		{"True", value.String("True")},
		{"Inf", value.String("Inf")},
		{"hello", value.String("hello")},
		{"", value.String("")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := value.ParseScalar(tt.in)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestValue_String(t *testing.T) {
	v := value.Of(value.NewTree(
		value.Pair{Key: "a", Value: value.String("x")},
		value.Pair{Key: "b", Value: value.List(value.Float(1), value.Absent())},
	))
	assert.Equal(t, `{"a": "x", "b": [1.0, <absent>]}`, v.String())
}
