package value

import (
	"iter"
	"strconv"
	"strings"
)

// Pair is one tree entry.
type Pair struct {
	Key   string
	Value Value
}

// Tree is an immutable, insertion-ordered, string-keyed mapping. Keys are
// case-sensitive. A nil *Tree behaves as an empty tree for every read.
//
// Derived trees are produced with With and Without; the receiver is never
// modified, so a tree can be shared freely once constructed.
type Tree struct {
	keys []string
	vals map[string]Value
}

// NewTree builds a tree from pairs. A repeated key keeps its first position
// and takes the last value.
func NewTree(pairs ...Pair) *Tree {
	t := &Tree{
		keys: make([]string, 0, len(pairs)),
		vals: make(map[string]Value, len(pairs)),
	}
	for _, p := range pairs {
		if _, ok := t.vals[p.Key]; !ok {
			t.keys = append(t.keys, p.Key)
		}
		t.vals[p.Key] = p.Value
	}
	return t
}

// Len returns the number of entries.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (t *Tree) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// All iterates entries in insertion order.
func (t *Tree) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if t == nil {
			return
		}
		for _, k := range t.keys {
			if !yield(k, t.vals[k]) {
				return
			}
		}
	}
}

// Pairs returns the entries in insertion order.
func (t *Tree) Pairs() []Pair {
	out := make([]Pair, 0, t.Len())
	for k, v := range t.All() {
		out = append(out, Pair{Key: k, Value: v})
	}
	return out
}

// With returns a copy of t where key maps to v. An existing key keeps its
// position; a new key is appended.
func (t *Tree) With(key string, v Value) *Tree {
	out := t.copy(1)
	if _, ok := out.vals[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.vals[key] = v
	return out
}

// Without returns a copy of t with key removed.
func (t *Tree) Without(key string) *Tree {
	out := t.copy(0)
	if _, ok := out.vals[key]; !ok {
		return out
	}
	delete(out.vals, key)
	for i, k := range out.keys {
		if k == key {
			out.keys = append(out.keys[:i], out.keys[i+1:]...)
			break
		}
	}
	return out
}

// Copy returns a shallow copy: a new top-level mapping sharing child values.
func (t *Tree) Copy() *Tree { return t.copy(0) }

func (t *Tree) copy(extra int) *Tree {
	n := t.Len()
	out := &Tree{
		keys: make([]string, 0, n+extra),
		vals: make(map[string]Value, n+extra),
	}
	if t == nil {
		return out
	}
	out.keys = append(out.keys, t.keys...)
	for k, v := range t.vals {
		out.vals[k] = v
	}
	return out
}

// Equal reports whether both trees hold the same keys with equal values,
// regardless of order.
func (t *Tree) Equal(o *Tree) bool {
	if t.Len() != o.Len() {
		return false
	}
	for k, v := range t.All() {
		ov, ok := o.Get(k)
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// String renders the tree for diagnostics.
func (t *Tree) String() string {
	b := &strings.Builder{}
	t.write(b)
	return b.String()
}

func (t *Tree) write(b *strings.Builder) {
	b.WriteByte('{')
	i := 0
	for k, v := range t.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(k))
		b.WriteString(": ")
		v.write(b)
		i++
	}
	b.WriteByte('}')
}
