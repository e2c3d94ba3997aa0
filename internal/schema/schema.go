// Package schema builds and caches the binding descriptor set of a Go type.
//
// A field takes part in binding only when it carries a `config` struct tag.
// The external key resolves as: config name > yaml tag name > json tag name >
// field name; "-" disables the field. The only recognised option is
// "section", which declares a raw store-backed section. Types supplying a
// store are sections whether or not the option is present, and may not
// declare keys of their own.
package schema

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/DavidNery/ConfigHelper/value"
)

// TagName is the struct tag that declares a bindable key.
const TagName = "config"

// Nesting tells the binder how to treat a declared key.
type Nesting uint8

const (
	Leaf    Nesting = iota // Scalar, list or dynamic value assigned directly.
	Nested                 // Bindable object, bound recursively.
	Section                // Raw store-backed section, injected verbatim.
)

func (n Nesting) String() string {
	switch n {
	case Leaf:
		return "leaf"
	case Nested:
		return "nested"
	case Section:
		return "section"
	default:
		return "unknown"
	}
}

// Tag is the declared type of a leaf.
type Tag uint8

const (
	TagNone     Tag = iota
	TagString       // string kinds
	TagInt          // signed integer kinds
	TagUint         // unsigned integer kinds
	TagFloat        // float32, float64
	TagBool         // bool
	TagList         // slices of a scalar tag, or []any
	TagDynamic      // any, value.Value
	TagTree         // *value.Tree
	TagText         // encoding.TextUnmarshaler, encoded as a string
	TagDuration     // time.Duration, encoded as a string
)

// Kind returns the value kind a leaf tag accepts. TagDynamic accepts every
// kind and reports KindAbsent.
func (t Tag) Kind() value.Kind {
	switch t {
	case TagString, TagText, TagDuration:
		return value.KindString
	case TagInt, TagUint:
		return value.KindInt
	case TagFloat:
		return value.KindFloat
	case TagBool:
		return value.KindBool
	case TagList:
		return value.KindList
	case TagTree:
		return value.KindTree
	default:
		return value.KindAbsent
	}
}

func (t Tag) String() string {
	switch t {
	case TagString:
		return "string"
	case TagInt, TagUint:
		return "int"
	case TagFloat:
		return "float"
	case TagBool:
		return "bool"
	case TagList:
		return "list"
	case TagDynamic:
		return "any"
	case TagTree:
		return "tree"
	case TagText:
		return "text"
	case TagDuration:
		return "duration"
	default:
		return "none"
	}
}

// Descriptor describes one declared key.
type Descriptor struct {
	Key     string       // Declared key, emitted verbatim on save.
	Field   string       // Go field name.
	Index   int          // Field index within the owning struct.
	Type    reflect.Type // Declared Go type of the field.
	Nesting Nesting
	Tag     Tag  // Leaf tag (leaves only).
	Elem    Tag  // Element tag for TagList; TagDynamic for []any.
	Pointer bool // Field holds *T (nil means unset).
	// NoStore marks a field declared as a section whose type does not supply
	// a store. Binding it is a section error.
	NoStore bool
}

// Expected renders the declared type for diagnostics.
func (d *Descriptor) Expected() string {
	switch d.Nesting {
	case Nested:
		return "tree (" + d.Type.String() + ")"
	case Section:
		return "tree (section " + d.Type.String() + ")"
	}
	switch {
	case d.Tag == TagList && d.Elem != TagDynamic:
		return "list of " + d.Elem.String()
	case d.Tag == TagText || d.Tag == TagDuration:
		return "string (" + d.Type.String() + ")"
	}
	return d.Tag.String()
}

// Set is the descriptor set of one struct type. It is immutable once built.
type Set struct {
	Type        reflect.Type
	Descriptors []Descriptor
	byName      map[string]int
	byFold      map[string]int
}

// Lookup finds the descriptor matching key, folding case unless
// caseSensitive is set.
func (s *Set) Lookup(key string, caseSensitive bool) (*Descriptor, bool) {
	var (
		i  int
		ok bool
	)
	if caseSensitive {
		i, ok = s.byName[key]
	} else {
		i, ok = s.byFold[strings.ToLower(key)]
	}
	if !ok {
		return nil, false
	}
	return &s.Descriptors[i], true
}

// BuildError reports a type that cannot be described.
type BuildError struct {
	Type  reflect.Type
	Field string
	Msg   string
}

func (e *BuildError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Msg)
	}
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Msg)
}

type entry struct {
	set *Set
	err error
}

// Cache builds descriptor sets once per type. Safe for concurrent use.
type Cache struct {
	provider reflect.Type // interface implemented by store-backed sections
	sets     sync.Map     // reflect.Type -> entry
}

// NewCache returns a cache that treats types whose pointer implements
// provider as raw sections.
func NewCache(provider reflect.Type) *Cache {
	return &Cache{provider: provider}
}

// For returns the descriptor set of struct type t (pointers are dereferenced).
func (c *Cache) For(t reflect.Type) (*Set, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := c.sets.Load(t); ok {
		en := e.(entry)
		return en.set, en.err
	}
	set, err := c.build(t)
	e, _ := c.sets.LoadOrStore(t, entry{set: set, err: err})
	en := e.(entry)
	return en.set, en.err
}

// IsProvider reports whether values of t (or *t) supply a store.
func (c *Cache) IsProvider(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return t.Implements(c.provider)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflect.PointerTo(t).Implements(c.provider)
}

func (c *Cache) build(t reflect.Type) (*Set, error) {
	if t.Kind() != reflect.Struct {
		return nil, &BuildError{Type: t, Msg: "bindable type must be a struct"}
	}
	if c.IsProvider(t) {
		if name, ok := declaresKeys(t); ok {
			return nil, &BuildError{Type: t, Field: name, Msg: "store-backed type cannot also declare keys"}
		}
	}
	set := &Set{
		Type:   t,
		byName: make(map[string]int),
		byFold: make(map[string]int),
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		raw, ok := sf.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		key, section := ResolveKey(sf, raw)
		if key == "-" {
			continue
		}
		if !sf.IsExported() {
			return nil, &BuildError{Type: t, Field: sf.Name, Msg: "declared key on unexported field"}
		}
		d, err := c.describe(sf, key, section)
		if err != nil {
			return nil, &BuildError{Type: t, Field: sf.Name, Msg: err.Error()}
		}
		d.Index = i
		fold := strings.ToLower(key)
		if j, dup := set.byFold[fold]; dup {
			return nil, &BuildError{Type: t, Field: sf.Name, Msg: fmt.Sprintf("key %q collides with field %s", key, set.Descriptors[j].Field)}
		}
		set.byName[key] = len(set.Descriptors)
		set.byFold[fold] = len(set.Descriptors)
		set.Descriptors = append(set.Descriptors, d)
	}
	return set, nil
}

// declaresKeys returns the first field of t that declares a key.
func declaresKeys(t reflect.Type) (string, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		raw, ok := sf.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		if key, _ := ResolveKey(sf, raw); key != "-" {
			return sf.Name, true
		}
	}
	return "", false
}

// ResolveKey applies the key resolution rule for a struct field whose config
// tag is raw. It reports whether the "section" option is present.
func ResolveKey(sf reflect.StructField, raw string) (string, bool) {
	parts := strings.Split(raw, ",")
	name := strings.TrimSpace(parts[0])
	section := false
	for _, p := range parts[1:] {
		if strings.TrimSpace(p) == "section" {
			section = true
		}
	}
	if name == "-" && len(parts) == 1 {
		return "-", false
	}
	if name != "" {
		return name, section
	}
	for _, other := range []string{"yaml", "json"} {
		if tv := sf.Tag.Get(other); tv != "" {
			if i := strings.IndexByte(tv, ','); i >= 0 {
				tv = tv[:i]
			}
			if tv != "" && tv != "-" {
				return tv, section
			}
		}
	}
	return sf.Name, section
}

var (
	durationType        = reflect.TypeFor[time.Duration]()
	valueType           = reflect.TypeFor[value.Value]()
	treePtrType         = reflect.TypeFor[*value.Tree]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
)

func (c *Cache) describe(sf reflect.StructField, key string, section bool) (Descriptor, error) {
	d := Descriptor{Key: key, Field: sf.Name, Type: sf.Type}
	ft := sf.Type

	if ft == treePtrType {
		d.Tag = TagTree
		d.Pointer = true
		return d, nil
	}
	if ft == valueType {
		d.Tag = TagDynamic
		return d, nil
	}

	if ft.Kind() == reflect.Interface {
		switch {
		case section || ft.Implements(c.provider):
			d.Nesting = Section
			d.NoStore = !ft.Implements(c.provider)
		case ft.NumMethod() == 0:
			d.Tag = TagDynamic
		default:
			d.Nesting = Nested
		}
		return d, nil
	}

	base := ft
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
		d.Pointer = true
		if base.Kind() == reflect.Pointer {
			return d, fmt.Errorf("unsupported type %s", ft)
		}
	}

	if c.IsProvider(base) {
		d.Nesting = Section
		if base.Kind() == reflect.Struct {
			if _, err := c.For(base); err != nil {
				return d, err
			}
		}
		return d, nil
	}
	if section {
		d.Nesting = Section
		d.NoStore = true
		return d, nil
	}

	switch {
	case base == durationType:
		d.Tag = TagDuration
		return d, nil
	case isText(base):
		d.Tag = TagText
		return d, nil
	}

	if base.Kind() == reflect.Struct {
		d.Nesting = Nested
		return d, nil
	}

	tag, ok := scalarTag(base)
	if ok {
		d.Tag = tag
		return d, nil
	}
	if base.Kind() == reflect.Slice {
		if d.Pointer {
			return d, fmt.Errorf("unsupported type %s", ft)
		}
		et := base.Elem()
		d.Tag = TagList
		if et == valueType || (et.Kind() == reflect.Interface && et.NumMethod() == 0) {
			d.Elem = TagDynamic
			return d, nil
		}
		if elem, ok := scalarTag(et); ok {
			d.Elem = elem
			return d, nil
		}
		return d, fmt.Errorf("unsupported list element type %s", et)
	}
	return d, fmt.Errorf("unsupported type %s", ft)
}

func isText(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(textUnmarshalerType) && (t.Implements(textMarshalerType) || pt.Implements(textMarshalerType))
}

func scalarTag(t reflect.Type) (Tag, bool) {
	switch t.Kind() {
	case reflect.String:
		return TagString, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return TagInt, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TagUint, true
	case reflect.Float32, reflect.Float64:
		return TagFloat, true
	case reflect.Bool:
		return TagBool, true
	}
	return TagNone, false
}
