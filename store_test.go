package confighelper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ch "github.com/DavidNery/ConfigHelper"
	"github.com/DavidNery/ConfigHelper/value"
)

func TestStore_SetThenGet(t *testing.T) {
	s := ch.NewStore()
	s.Set("a.b.c", value.Int(1))

	assert.True(t, s.Get("a.b.c").Equal(value.Int(1)))
	sub := s.GetTree("a.b", nil)
	require.NotNil(t, sub)
	assert.Equal(t, []string{"c"}, sub.Keys())
}

func TestStore_ShadowOverwrite(t *testing.T) {
	s := ch.NewStore()
	s.Set("a", value.String("scalar"))
	s.Set("a.b", value.Int(2))

	want := value.Of(value.NewTree(value.Pair{Key: "b", Value: value.Int(2)}))
	assert.True(t, s.Get("a").Equal(want), "got %s", s.Get("a"))
}

func TestStore_GetShortCircuitsOnScalar(t *testing.T) {
	s := ch.NewStore()
	s.Set("a", value.Int(5))

	assert.True(t, s.Get("a.b.c").Equal(value.Int(5)), "scalar at an intermediate segment is returned")

	_, ok := s.Lookup("a.b.c")
	assert.False(t, ok, "Lookup reports the shadowed walk")
	v, ok := s.Lookup("a")
	assert.True(t, ok)
	assert.True(t, v.Equal(value.Int(5)))
}

func TestStore_MissingPaths(t *testing.T) {
	var s ch.Store
	assert.True(t, s.Get("x").IsAbsent())
	assert.False(t, s.Contains("x"))
	assert.True(t, s.GetOr("x", value.String("d")).Equal(value.String("d")))
	assert.Equal(t, "def", s.GetString("x.y", "def"))
	assert.Equal(t, 0, s.Len())
}

func TestStore_TypedGettersAreStrict(t *testing.T) {
	s := ch.NewStore()
	s.Set("n", value.Int(3))
	s.Set("f", value.Float(1.5))
	s.Set("b", value.Bool(true))
	s.Set("s", value.String("txt"))
	s.Set("l", value.List(value.Int(1)))

	assert.Equal(t, int64(3), s.GetInt("n", 0))
	assert.Equal(t, 9.0, s.GetFloat("n", 9), "ints are not widened")
	assert.Equal(t, int64(7), s.GetInt("f", 7), "floats are not truncated")
	assert.Equal(t, 1.5, s.GetFloat("f", 0))
	assert.True(t, s.GetBool("b", false))
	assert.Equal(t, "fallback", s.GetString("n", "fallback"))
	assert.Equal(t, "txt", s.GetString("s", ""))
	assert.Len(t, s.GetList("l", nil), 1)
	assert.Nil(t, s.GetList("s", nil))

	assert.True(t, s.ContainsKind("n", value.KindInt))
	assert.False(t, s.ContainsKind("n", value.KindFloat))
}

func TestStore_Delete(t *testing.T) {
	s := ch.NewStore()
	s.Set("a.b", value.Int(1))
	s.Set("a.c", value.Int(2))

	assert.True(t, s.Delete("a.b"))
	assert.False(t, s.Delete("a.b"))
	assert.False(t, s.Delete("a.c.d"), "a scalar cannot hold children")
	assert.Equal(t, []string{"a.c"}, s.Keys())
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	s := ch.NewStore()
	s.Set("a", value.Int(1))
	snap := s.Snapshot()

	s.Set("a", value.Int(2))
	s.Set("b", value.Int(3))

	v, _ := snap.Get("a")
	assert.True(t, v.Equal(value.Int(1)))
	assert.False(t, snap.Has("b"))
}

func TestStore_ReplaceAndKeys(t *testing.T) {
	s := ch.NewStoreFrom(nil)
	s.Replace(value.NewTree(
		value.Pair{Key: "z", Value: value.Int(1)},
		value.Pair{Key: "a", Value: value.Of(value.NewTree(
			value.Pair{Key: "x", Value: value.Bool(true)},
			value.Pair{Key: "empty", Value: value.Of(nil)},
		))},
	))
	assert.Equal(t, []string{"z", "a.x", "a.empty"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	s.Replace(nil)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "{}", s.String())
}

func TestStore_IsItsOwnProvider(t *testing.T) {
	s := ch.NewStore()
	var p ch.StoreProvider = s
	assert.Same(t, s, p.ConfigStore())
}
