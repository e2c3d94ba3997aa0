package confighelper

import (
	"strings"

	"github.com/DavidNery/ConfigHelper/value"
)

// StoreProvider is implemented by raw store-backed sections. A type declares
// its store either by embedding Store (the method is promoted, an inherited
// store) or by implementing ConfigStore itself (an own store).
type StoreProvider interface {
	ConfigStore() *Store
}

// Store is a hierarchical key/value store addressed by dotted paths.
//
// The zero Store is empty and ready to use. Reads never modify it; Set
// creates intermediate trees as needed. A Store is not safe for concurrent
// mutation.
type Store struct {
	root *value.Tree
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{root: value.NewTree()} }

// NewStoreFrom returns a store holding t.
func NewStoreFrom(t *value.Tree) *Store {
	if t == nil {
		t = value.NewTree()
	}
	return &Store{root: t}
}

// ConfigStore makes *Store a StoreProvider; types embedding Store inherit it.
func (s *Store) ConfigStore() *Store { return s }

func splitPath(path string) []string { return strings.Split(path, ".") }

// Get returns the value at path, or Absent.
//
// Legacy quirk kept on purpose: when an intermediate segment holds a
// non-tree value, that value is returned as the result of the whole walk
// ("a.b" yields the scalar stored at "a"). Use Lookup to detect it.
func (s *Store) Get(path string) value.Value {
	v, _ := s.walk(path)
	return v
}

// GetOr returns the value at path, or def when it is absent.
func (s *Store) GetOr(path string, def value.Value) value.Value {
	v := s.Get(path)
	if v.IsAbsent() {
		return def
	}
	return v
}

// Lookup is the strict form of Get: ok is false when path is missing or when
// a non-tree intermediate value shadows the rest of the path.
func (s *Store) Lookup(path string) (value.Value, bool) {
	v, shadowed := s.walk(path)
	if shadowed || v.IsAbsent() {
		return value.Value{}, false
	}
	return v, true
}

func (s *Store) walk(path string) (value.Value, bool) {
	segs := splitPath(path)
	cur := s.root
	for i, seg := range segs {
		v, ok := cur.Get(seg)
		if !ok {
			return value.Value{}, false
		}
		if i == len(segs)-1 {
			return v, false
		}
		next, isTree := v.AsTree()
		if !isTree {
			return v, true
		}
		cur = next
	}
	return value.Value{}, false
}

// Contains reports whether path resolves to a present value.
func (s *Store) Contains(path string) bool { return s.Get(path).IsPresent() }

// ContainsKind reports whether path resolves to a value of kind k.
func (s *Store) ContainsKind(path string, k value.Kind) bool {
	v := s.Get(path)
	return v.IsPresent() && v.Kind() == k
}

// Set stores v at path. Intermediate segments that are missing or hold a
// non-tree value are replaced by fresh trees.
func (s *Store) Set(path string, v value.Value) {
	s.root = setIn(s.root, splitPath(path), v)
}

func setIn(t *value.Tree, segs []string, v value.Value) *value.Tree {
	if len(segs) == 1 {
		return t.With(segs[0], v)
	}
	cur, _ := t.Get(segs[0])
	child, ok := cur.AsTree()
	if !ok {
		child = value.NewTree()
	}
	return t.With(segs[0], value.Of(setIn(child, segs[1:], v)))
}

// Delete removes the value at path and reports whether it existed.
func (s *Store) Delete(path string) bool {
	if _, ok := s.Lookup(path); !ok {
		return false
	}
	s.root = deleteIn(s.root, splitPath(path))
	return true
}

func deleteIn(t *value.Tree, segs []string) *value.Tree {
	if len(segs) == 1 {
		return t.Without(segs[0])
	}
	cur, _ := t.Get(segs[0])
	child, _ := cur.AsTree()
	return t.With(segs[0], value.Of(deleteIn(child, segs[1:])))
}

// GetString returns the string at path, or def when it is missing or holds
// another kind.
func (s *Store) GetString(path, def string) string {
	if v, ok := s.GetOr(path, value.String(def)).AsString(); ok {
		return v
	}
	return def
}

// GetInt returns the integer at path, or def. Floats are not truncated.
func (s *Store) GetInt(path string, def int64) int64 {
	if v, ok := s.GetOr(path, value.Int(def)).AsInt(); ok {
		return v
	}
	return def
}

// GetFloat returns the float at path, or def. Integers are not widened.
func (s *Store) GetFloat(path string, def float64) float64 {
	if v, ok := s.GetOr(path, value.Float(def)).AsFloat(); ok {
		return v
	}
	return def
}

// GetBool returns the boolean at path, or def.
func (s *Store) GetBool(path string, def bool) bool {
	if v, ok := s.GetOr(path, value.Bool(def)).AsBool(); ok {
		return v
	}
	return def
}

// GetList returns the list items at path, or def.
func (s *Store) GetList(path string, def []value.Value) []value.Value {
	if v, ok := s.Get(path).AsList(); ok {
		return v
	}
	return def
}

// GetTree returns the tree at path, or def.
func (s *Store) GetTree(path string, def *value.Tree) *value.Tree {
	if v, ok := s.Get(path).AsTree(); ok {
		return v
	}
	return def
}

// Snapshot returns a copy of the top-level mapping. Trees are immutable, so
// nothing done with the result can affect the store.
func (s *Store) Snapshot() *value.Tree { return s.tree().Copy() }

// Replace swaps the whole content of the store for t.
func (s *Store) Replace(t *value.Tree) {
	if t == nil {
		t = value.NewTree()
	}
	s.root = t
}

// Len returns the number of top-level keys.
func (s *Store) Len() int { return s.root.Len() }

// Keys returns the dotted paths of every non-tree value in document order.
// Empty trees are reported by their own path.
func (s *Store) Keys() []string {
	var out []string
	var walk func(prefix string, t *value.Tree)
	walk = func(prefix string, t *value.Tree) {
		for k, v := range t.All() {
			p := joinPath(prefix, k)
			if sub, ok := v.AsTree(); ok && sub.Len() > 0 {
				walk(p, sub)
				continue
			}
			out = append(out, p)
		}
	}
	walk("", s.root)
	return out
}

func (s *Store) tree() *value.Tree {
	if s == nil || s.root == nil {
		return value.NewTree()
	}
	return s.root
}

func (s *Store) String() string { return s.tree().String() }
