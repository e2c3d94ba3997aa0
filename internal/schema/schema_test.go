package schema

import (
	"errors"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidNery/ConfigHelper/value"
)

type provider interface{ Store() }

type rawSection struct{}

func (*rawSection) Store() {}

type inner struct {
	X int `config:"x"`
}

type iface interface{ M() }

type sample struct {
	Name     string         `config:"name"`
	Count    uint16         `config:"count"`
	Ratio    float32        `config:"ratio"`
	On       *bool          `config:"on"`
	Tags     []string       `config:"tags"`
	Any      []any          `config:"any"`
	Dyn      any            `config:"dyn"`
	Val      value.Value    `config:"val"`
	Tree     *value.Tree    `config:"tree"`
	Wait     time.Duration  `config:"wait"`
	IP       net.IP         `config:"ip"`
	Inner    inner          `config:"inner"`
	InnerP   *inner         `config:"inner_p"`
	Raw      rawSection     `config:"raw"`
	RawP     *rawSection    `config:"raw_p"`
	Plug     iface          `config:"plug"`
	PlugSec  iface          `config:"plug_sec,section"`
	Prov     provider       `config:"prov"`
	Fake     inner          `config:"fake,section"`
	Untagged string
}

func newCache() *Cache { return NewCache(reflect.TypeFor[provider]()) }

func TestCache_DescribesEveryShape(t *testing.T) {
	set, err := newCache().For(reflect.TypeFor[sample]())
	require.NoError(t, err)

	type shape struct {
		nesting Nesting
		tag     Tag
		elem    Tag
		pointer bool
		noStore bool
	}
	want := map[string]shape{
		"name":     {Leaf, TagString, TagNone, false, false},
		"count":    {Leaf, TagUint, TagNone, false, false},
		"ratio":    {Leaf, TagFloat, TagNone, false, false},
		"on":       {Leaf, TagBool, TagNone, true, false},
		"tags":     {Leaf, TagList, TagString, false, false},
		"any":      {Leaf, TagList, TagDynamic, false, false},
		"dyn":      {Leaf, TagDynamic, TagNone, false, false},
		"val":      {Leaf, TagDynamic, TagNone, false, false},
		"tree":     {Leaf, TagTree, TagNone, true, false},
		"wait":     {Leaf, TagDuration, TagNone, false, false},
		"ip":       {Leaf, TagText, TagNone, false, false},
		"inner":    {Nested, TagNone, TagNone, false, false},
		"inner_p":  {Nested, TagNone, TagNone, true, false},
		"raw":      {Section, TagNone, TagNone, false, false},
		"raw_p":    {Section, TagNone, TagNone, true, false},
		"plug":     {Nested, TagNone, TagNone, false, false},
		"plug_sec": {Section, TagNone, TagNone, false, true},
		"prov":     {Section, TagNone, TagNone, false, false},
		"fake":     {Section, TagNone, TagNone, false, true},
	}
	require.Len(t, set.Descriptors, len(want))
	for _, d := range set.Descriptors {
		w, ok := want[d.Key]
		require.True(t, ok, "unexpected key %q", d.Key)
		got := shape{d.Nesting, d.Tag, d.Elem, d.Pointer, d.NoStore}
		assert.Equal(t, w, got, "descriptor %q", d.Key)
	}
	assert.Equal(t, "name", set.Descriptors[0].Key, "declaration order is kept")
}

func TestCache_IsCachedPerType(t *testing.T) {
	c := newCache()
	var wg sync.WaitGroup
	sets := make([]*Set, 8)
	for i := range sets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := c.For(reflect.TypeFor[*sample]())
			assert.NoError(t, err)
			sets[i] = s
		}(i)
	}
	wg.Wait()
	for _, s := range sets[1:] {
		assert.Same(t, sets[0], s)
	}
}

func TestSet_Lookup(t *testing.T) {
	set, err := newCache().For(reflect.TypeFor[sample]())
	require.NoError(t, err)

	d, ok := set.Lookup("INNER_P", false)
	require.True(t, ok)
	assert.Equal(t, "InnerP", d.Field)

	_, ok = set.Lookup("INNER_P", true)
	assert.False(t, ok)
	_, ok = set.Lookup("Untagged", false)
	assert.False(t, ok)
}

func TestDescriptor_Expected(t *testing.T) {
	set, err := newCache().For(reflect.TypeFor[sample]())
	require.NoError(t, err)
	expected := map[string]string{
		"name":  "string",
		"count": "int",
		"tags":  "list of string",
		"any":   "list",
		"wait":  "string (time.Duration)",
		"ip":    "string (net.IP)",
		"inner": "tree (schema.inner)",
		"raw":   "tree (section schema.rawSection)",
	}
	for key, want := range expected {
		d, ok := set.Lookup(key, true)
		require.True(t, ok, key)
		assert.Equal(t, want, d.Expected(), key)
	}
}

func TestResolveKey(t *testing.T) {
	type tagged struct {
		A string `config:"explicit,section" yaml:"ya"`
		B string `config:"" yaml:"yb,omitempty" json:"jb"`
		C string `config:"" yaml:"-" json:"jc"`
		D string `config:""`
		E string `config:"-"`
		F string `config:"-,"`
	}
	typ := reflect.TypeFor[tagged]()
	tests := []struct {
		field   string
		key     string
		section bool
	}{
		{"A", "explicit", true},
		{"B", "yb", false},
		{"C", "jc", false},
		{"D", "D", false},
		{"E", "-", false},
		{"F", "-", false},
	}
	for _, tt := range tests {
		sf, _ := typ.FieldByName(tt.field)
		key, section := ResolveKey(sf, sf.Tag.Get(TagName))
		assert.Equal(t, tt.key, key, tt.field)
		assert.Equal(t, tt.section, section, tt.field)
	}
}

func TestCache_BuildErrors(t *testing.T) {
	type unexported struct {
		hidden string `config:"hidden"`
	}
	type dup struct {
		A string `config:"Key"`
		B int    `config:"key"`
	}
	type badMap struct {
		M map[string]string `config:"m"`
	}
	type badList struct {
		L []inner `config:"l"`
	}
	type doublePtr struct {
		P **int `config:"p"`
	}
	type storeWithKeys struct {
		rawSection
		X int `config:"x"`
	}
	type nestsStoreWithKeys struct {
		S *storeWithKeys `config:"s"`
	}

	c := newCache()
	for _, typ := range []reflect.Type{
		reflect.TypeFor[unexported](),
		reflect.TypeFor[dup](),
		reflect.TypeFor[badMap](),
		reflect.TypeFor[badList](),
		reflect.TypeFor[doublePtr](),
		reflect.TypeFor[storeWithKeys](),
		reflect.TypeFor[nestsStoreWithKeys](),
		reflect.TypeFor[int](),
	} {
		_, err := c.For(typ)
		var be *BuildError
		assert.True(t, errors.As(err, &be), "%s should not describe", typ)
	}
}
