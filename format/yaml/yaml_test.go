package yaml

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidNery/ConfigHelper/value"
)

func TestParse_KeepsOrderAndKinds(t *testing.T) {
	src := []byte(`
zeta: 1
alpha:
  ratio: 2.0
  on: true
  name: "007"
  none: ~
list: [a, 2, 3.5]
`)
	v, err := Parse(src)
	require.NoError(t, err)
	tr, ok := v.AsTree()
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "list"}, tr.Keys())

	alpha, _ := tr.Get("alpha")
	sub, _ := alpha.AsTree()
	assert.Equal(t, []string{"ratio", "on", "name", "none"}, sub.Keys())

	want := value.Of(value.NewTree(
		value.Pair{Key: "ratio", Value: value.Float(2)},
		value.Pair{Key: "on", Value: value.Bool(true)},
		value.Pair{Key: "name", Value: value.String("007")},
		value.Pair{Key: "none", Value: value.Absent()},
	))
	if diff := cmp.Diff(want, alpha); diff != "" {
		t.Fatalf("alpha (-want +got):\n%s", diff)
	}
	list, _ := tr.Get("list")
	assert.True(t, list.Equal(value.List(value.String("a"), value.Int(2), value.Float(3.5))))
}

func TestParse_DuplicateKey(t *testing.T) {
	_, err := Parse([]byte("a: 1\nb: 2\na: 3\n"))
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "a", dup.Key)
	assert.Equal(t, 1, dup.FirstLine)
	assert.Equal(t, 3, dup.Line)
}

func TestParse_EmptyAndScalarDocuments(t *testing.T) {
	v, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())

	v, err = Parse([]byte("- 1\n- 2\n"))
	require.NoError(t, err)
	assert.Equal(t, value.KindList, v.Kind())

	_, err = Parse([]byte("a: [1, 2\n"))
	assert.Error(t, err)
}

func TestParse_Aliases(t *testing.T) {
	v, err := Parse([]byte("base: &b {x: 1}\ncopy: *b\n"))
	require.NoError(t, err)
	tr, _ := v.AsTree()
	c, _ := tr.Get("copy")
	b, _ := tr.Get("base")
	assert.True(t, c.Equal(b))
}

func TestParse_AliasExpansionIsBounded(t *testing.T) {
	// Each level repeats the previous one ten times: 10^8 scalars in total.
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "l%d: &l%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "*l%d", i-1)
		}
		b.WriteString("]\n")
	}

	_, err := Parse([]byte(b.String()))
	assert.ErrorIs(t, err, ErrAliasExpansion)
}

func TestEmit(t *testing.T) {
	tr := value.NewTree(
		value.Pair{Key: "name", Value: value.String("true")},
		value.Pair{Key: "port", Value: value.Int(80)},
		value.Pair{Key: "ratio", Value: value.Float(1)},
		value.Pair{Key: "db", Value: value.Of(value.NewTree(
			value.Pair{Key: "hosts", Value: value.List(value.String("a"), value.String("b"))},
		))},
	)
	out, err := Emit(tr)
	require.NoError(t, err)
	assert.Equal(t, `name: "true"
port: 80
ratio: 1.0
db:
  hosts:
    - a
    - b
`, string(out))

	back, err := Parse(out)
	require.NoError(t, err)
	if diff := cmp.Diff(value.Of(tr), back); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestDriver(t *testing.T) {
	d := Format()
	assert.Equal(t, "yaml", d.Name())
	assert.Contains(t, d.Extensions(), ".yml")

	out, err := d.Emit(value.NewTree())
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(out))
}
