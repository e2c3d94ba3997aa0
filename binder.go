package confighelper

import (
	"encoding"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/DavidNery/ConfigHelper/internal/logging"
	"github.com/DavidNery/ConfigHelper/internal/schema"
	"github.com/DavidNery/ConfigHelper/value"
)

// descriptors is the process-wide descriptor cache. Sets are immutable once
// built, so concurrent binds of different instances share it safely.
var descriptors = schema.NewCache(reflect.TypeFor[StoreProvider]())

// Defaulter is implemented by nested types that want to fill defaults when
// the binder has to create them.
type Defaulter interface {
	ApplyDefaults()
}

// Binder maps value trees onto tagged structs and back.
//
// Loading matches document keys against declared keys case-insensitively
// unless WithCaseSensitiveKeys is set; saving always emits the declared
// spelling. Unknown document keys are ignored and null values leave fields
// untouched.
type Binder struct {
	logger        *slog.Logger
	caseSensitive bool
	failFast      bool
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(b *Binder) { b.logger = l }
}

// WithCaseSensitiveKeys makes load-time key matching exact.
func WithCaseSensitiveKeys() Option {
	return func(b *Binder) { b.caseSensitive = true }
}

// WithFailFast selects fail-fast (true, the default) or best-effort binding.
// Fail-fast stops at the first failure; fields processed before it keep
// their new values. Best-effort keeps going and returns every failure as
// Issues.
func WithFailFast(enabled bool) Option {
	return func(b *Binder) { b.failFast = enabled }
}

// NewBinder returns a Binder with the given options applied.
func NewBinder(opts ...Option) *Binder {
	b := &Binder{failFast: true}
	for _, o := range opts {
		o(b)
	}
	return b
}

var defaultBinder = NewBinder()

// Bind binds t into target with the default Binder.
func Bind(target any, t *value.Tree) error { return defaultBinder.Bind(target, t) }

// Unbind extracts source into a tree with the default Binder.
func Unbind(source any) (*value.Tree, error) { return defaultBinder.Unbind(source) }

func (b *Binder) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return logging.For("binder")
}

type bindState struct {
	b      *Binder
	report *Report
	issues Issues
}

// fail records err. It returns err when binding must stop.
func (st *bindState) fail(err *Error) error {
	if st.b.failFast {
		return err
	}
	st.issues = append(st.issues, err)
	return nil
}

// Bind walks t and assigns every matching declared key of target, which must
// be a non-nil pointer to a struct or a StoreProvider. A StoreProvider
// receives the whole tree verbatim.
func (b *Binder) Bind(target any, t *value.Tree) error {
	_, err := b.bind(target, t, nil)
	return err
}

// BindWithReport is Bind plus a per-path account of what happened.
func (b *Binder) BindWithReport(target any, t *value.Tree) (*Report, error) {
	return b.bind(target, t, newReport())
}

func (b *Binder) bind(target any, t *value.Tree, r *Report) (*Report, error) {
	if p, ok := target.(StoreProvider); ok {
		if err := b.InjectSection(p, t); err != nil {
			return r, err
		}
		for _, k := range t.Keys() {
			r.mark(k, PresenceSeen|PresenceBound)
		}
		return r, nil
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return r, &Error{Code: CodeSchemaInvalid, Type: fmt.Sprintf("%T", target), Message: "bind target must be a non-nil pointer to a struct"}
	}
	st := &bindState{b: b, report: r}
	if err := st.bindStruct(rv.Elem(), t, ""); err != nil {
		return r, err
	}
	if len(st.issues) > 0 {
		return r, st.issues
	}
	return r, nil
}

func schemaError(t reflect.Type, path string, err error) *Error {
	return &Error{Code: CodeSchemaInvalid, Path: path, Type: t.String(), Message: "cannot describe type", Cause: err}
}

func (st *bindState) bindStruct(rv reflect.Value, t *value.Tree, path string) error {
	set, err := descriptors.For(rv.Type())
	if err != nil {
		return schemaError(rv.Type(), path, err)
	}
	for k, v := range t.All() {
		p := joinPath(path, k)
		st.report.mark(p, PresenceSeen)
		d, ok := set.Lookup(k, st.b.caseSensitive)
		if !ok {
			st.b.log().Debug("ignoring unknown key", "path", p, "type", set.Type.String())
			st.report.mark(p, PresenceUnknown)
			continue
		}
		if v.IsAbsent() {
			st.b.log().Debug("skipping null value", "path", p)
			st.report.mark(p, PresenceWasNull)
			continue
		}
		fv := rv.Field(d.Index)
		var ferr *Error
		switch d.Nesting {
		case schema.Nested:
			sub, isTree := v.AsTree()
			if !isTree {
				ferr = mismatch(d, v, p, set.Type, nil)
				break
			}
			if err := st.bindNested(fv, d, sub, p); err != nil {
				return err
			}
		case schema.Section:
			sub, isTree := v.AsTree()
			if !isTree {
				ferr = mismatch(d, v, p, set.Type, nil)
				break
			}
			ferr = st.bindSection(fv, d, sub, p)
		default:
			ferr = assignLeaf(fv, d, v, p, set.Type)
		}
		if ferr != nil {
			if err := st.fail(ferr); err != nil {
				return err
			}
			continue
		}
		st.report.mark(p, PresenceBound)
	}
	return nil
}

func (st *bindState) bindNested(fv reflect.Value, d *schema.Descriptor, t *value.Tree, path string) error {
	switch {
	case d.Type.Kind() == reflect.Interface:
		if fv.IsNil() {
			return st.fail(&Error{Code: CodeConstruction, Path: path, Key: d.Key, Type: d.Type.String(), Message: "cannot instantiate an interface-typed key"})
		}
		held := fv.Elem()
		if held.Kind() != reflect.Pointer || held.IsNil() || held.Elem().Kind() != reflect.Struct {
			return st.fail(&Error{Code: CodeConstruction, Path: path, Key: d.Key, Type: held.Type().String(), Message: "interface must hold a non-nil pointer to a struct"})
		}
		return st.bindStruct(held.Elem(), t, path)
	case d.Pointer:
		if fv.IsNil() {
			fv.Set(construct(d.Type.Elem()))
			st.report.mark(path, PresenceConstructed)
		}
		return st.bindStruct(fv.Elem(), t, path)
	default:
		return st.bindStruct(fv, t, path)
	}
}

func construct(t reflect.Type) reflect.Value {
	nv := reflect.New(t)
	if d, ok := nv.Interface().(Defaulter); ok {
		d.ApplyDefaults()
	}
	return nv
}

func (st *bindState) bindSection(fv reflect.Value, d *schema.Descriptor, t *value.Tree, path string) *Error {
	if d.Pointer && fv.IsNil() && !d.NoStore {
		st.report.mark(path, PresenceConstructed)
	}
	p, err := sectionProvider(fv, d, path, true)
	if err != nil {
		return err
	}
	return injectInto(p, t, path, d.Type)
}

// sectionProvider resolves the store provider held by a section field,
// constructing it when create is set.
func sectionProvider(fv reflect.Value, d *schema.Descriptor, path string, create bool) (StoreProvider, *Error) {
	if d.NoStore {
		return nil, &Error{Code: CodeSectionInvalid, Path: path, Key: d.Key, Type: d.Type.String(), Message: "declared section type does not supply a store"}
	}
	switch {
	case d.Type.Kind() == reflect.Interface:
		if fv.IsNil() {
			if !create {
				return nil, nil
			}
			return nil, &Error{Code: CodeConstruction, Path: path, Key: d.Key, Type: d.Type.String(), Message: "cannot instantiate an interface-typed section"}
		}
		p, ok := fv.Interface().(StoreProvider)
		if !ok {
			return nil, &Error{Code: CodeSectionInvalid, Path: path, Key: d.Key, Type: fv.Elem().Type().String(), Message: "value does not supply a store"}
		}
		if err := checkProvider(p, path); err != nil {
			return nil, err
		}
		return p, nil
	case d.Pointer:
		if fv.IsNil() {
			if !create {
				return nil, nil
			}
			fv.Set(construct(d.Type.Elem()))
		}
		return fv.Interface().(StoreProvider), nil
	default:
		return fv.Addr().Interface().(StoreProvider), nil
	}
}

// InjectSection replaces the store content of target with t. target must
// supply a store.
func (b *Binder) InjectSection(target any, t *value.Tree) error {
	p, ok := target.(StoreProvider)
	if !ok {
		return &Error{Code: CodeSectionInvalid, Type: fmt.Sprintf("%T", target), Message: "value does not supply a store"}
	}
	if err := checkProvider(target, ""); err != nil {
		return err
	}
	if err := injectInto(p, t, "", reflect.TypeOf(target)); err != nil {
		return err
	}
	return nil
}

// InjectSection replaces the store content of target with t.
func InjectSection(target any, t *value.Tree) error { return defaultBinder.InjectSection(target, t) }

func injectInto(p StoreProvider, t *value.Tree, path string, typ reflect.Type) *Error {
	s := p.ConfigStore()
	if s == nil {
		return &Error{Code: CodeSectionInvalid, Path: path, Type: typ.String(), Message: "section returned a nil store"}
	}
	s.Replace(t)
	return nil
}

// checkProvider rejects store-backed structs that also declare keys.
func checkProvider(p any, path string) *Error {
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if _, err := descriptors.For(t); err != nil {
		return schemaError(t, path, err)
	}
	return nil
}

// ExtractSection returns a copy of the store content of source.
func ExtractSection(source any) (*value.Tree, error) {
	p, ok := source.(StoreProvider)
	if !ok {
		return nil, &Error{Code: CodeSectionInvalid, Type: fmt.Sprintf("%T", source), Message: "value does not supply a store"}
	}
	if err := checkProvider(source, ""); err != nil {
		return nil, err
	}
	s := p.ConfigStore()
	if s == nil {
		return nil, &Error{Code: CodeSectionInvalid, Type: fmt.Sprintf("%T", source), Message: "section returned a nil store"}
	}
	return s.Snapshot(), nil
}

func mismatch(d *schema.Descriptor, v value.Value, path string, owner reflect.Type, cause error) *Error {
	return &Error{
		Code:     CodeTypeMismatch,
		Path:     path,
		Key:      d.Key,
		Type:     owner.String(),
		Expected: d.Expected(),
		Found:    v.Kind(),
		Cause:    cause,
	}
}

func assignLeaf(fv reflect.Value, d *schema.Descriptor, v value.Value, path string, owner reflect.Type) *Error {
	switch d.Tag {
	case schema.TagTree:
		t, ok := v.AsTree()
		if !ok {
			return mismatch(d, v, path, owner, nil)
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	case schema.TagDynamic:
		if d.Type == reflect.TypeFor[value.Value]() {
			fv.Set(reflect.ValueOf(v))
		} else {
			fv.Set(reflect.ValueOf(dynamicOf(v)))
		}
		return nil
	}

	target := fv
	if d.Pointer {
		target = reflect.New(d.Type.Elem()).Elem()
	}
	if d.Tag == schema.TagList {
		items, ok := v.AsList()
		if !ok {
			return mismatch(d, v, path, owner, nil)
		}
		out := reflect.MakeSlice(target.Type(), len(items), len(items))
		for i, it := range items {
			if err := setScalar(out.Index(i), d.Elem, it); err != nil {
				return mismatch(d, it, path+"["+strconv.Itoa(i)+"]", owner, causeOf(err))
			}
		}
		target.Set(out)
	} else if err := setScalar(target, d.Tag, v); err != nil {
		return mismatch(d, v, path, owner, causeOf(err))
	}
	if d.Pointer {
		fv.Set(target.Addr())
	}
	return nil
}

// dynamicOf converts v for an any-typed field. Trees stay *value.Tree, at
// any depth, so their key order survives Unbind.
func dynamicOf(v value.Value) any {
	switch v.Kind() {
	case value.KindTree:
		t, _ := v.AsTree()
		return t
	case value.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = dynamicOf(it)
		}
		return out
	}
	return v.Interface()
}

// errKind marks a plain kind mismatch; other errors are decode failures.
var errKind = errors.New("kind mismatch")

func causeOf(err error) error {
	if err == errKind {
		return nil
	}
	return err
}

func setScalar(target reflect.Value, tag schema.Tag, v value.Value) error {
	switch tag {
	case schema.TagDynamic:
		if target.Type() == reflect.TypeFor[value.Value]() {
			target.Set(reflect.ValueOf(v))
		} else if x := dynamicOf(v); x != nil {
			target.Set(reflect.ValueOf(x))
		}
		return nil
	case schema.TagString:
		s, ok := v.AsString()
		if !ok {
			return errKind
		}
		target.SetString(s)
	case schema.TagInt:
		i, ok := v.AsInt()
		if !ok {
			return errKind
		}
		if target.OverflowInt(i) {
			return fmt.Errorf("%d overflows %s", i, target.Type())
		}
		target.SetInt(i)
	case schema.TagUint:
		i, ok := v.AsInt()
		if !ok {
			return errKind
		}
		if i < 0 || target.OverflowUint(uint64(i)) {
			return fmt.Errorf("%d overflows %s", i, target.Type())
		}
		target.SetUint(uint64(i))
	case schema.TagFloat:
		f, ok := v.AsFloat()
		if !ok {
			return errKind
		}
		if target.OverflowFloat(f) {
			return fmt.Errorf("%g overflows %s", f, target.Type())
		}
		target.SetFloat(f)
	case schema.TagBool:
		bv, ok := v.AsBool()
		if !ok {
			return errKind
		}
		target.SetBool(bv)
	case schema.TagDuration:
		s, ok := v.AsString()
		if !ok {
			return errKind
		}
		dur, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		target.SetInt(int64(dur))
	case schema.TagText:
		s, ok := v.AsString()
		if !ok {
			return errKind
		}
		nv := reflect.New(target.Type())
		if err := nv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return err
		}
		target.Set(nv.Elem())
	default:
		return errKind
	}
	return nil
}

// Unbind extracts every declared key of source into a fresh tree, in
// declaration order. Unset (nil) values are skipped. A StoreProvider yields
// a copy of its store.
func (b *Binder) Unbind(source any) (*value.Tree, error) {
	if p, ok := source.(StoreProvider); ok {
		return ExtractSection(p)
	}
	rv := reflect.ValueOf(source)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, &Error{Code: CodeSchemaInvalid, Type: fmt.Sprintf("%T", source), Message: "unbind source is nil"}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, &Error{Code: CodeSchemaInvalid, Type: fmt.Sprintf("%T", source), Message: "unbind source must be a struct or a pointer to one"}
	}
	if !rv.CanAddr() {
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		rv = cp
	}
	return unbindStruct(rv, "")
}

func isNil(fv reflect.Value) bool {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return fv.IsNil()
	}
	return false
}

func unbindStruct(rv reflect.Value, path string) (*value.Tree, error) {
	set, err := descriptors.For(rv.Type())
	if err != nil {
		return nil, schemaError(rv.Type(), path, err)
	}
	pairs := make([]value.Pair, 0, len(set.Descriptors))
	for i := range set.Descriptors {
		d := &set.Descriptors[i]
		fv := rv.Field(d.Index)
		p := joinPath(path, d.Key)
		if d.NoStore {
			return nil, &Error{Code: CodeSectionInvalid, Path: p, Key: d.Key, Type: d.Type.String(), Message: "declared section type does not supply a store"}
		}
		if isNil(fv) {
			continue
		}
		var v value.Value
		switch d.Nesting {
		case schema.Nested:
			target := fv
			for target.Kind() == reflect.Interface || target.Kind() == reflect.Pointer {
				if target.IsNil() {
					break
				}
				target = target.Elem()
			}
			if target.Kind() != reflect.Struct {
				continue
			}
			sub, err := unbindStruct(target, p)
			if err != nil {
				return nil, err
			}
			v = value.Of(sub)
		case schema.Section:
			sp, serr := sectionProvider(fv, d, p, false)
			if serr != nil {
				return nil, serr
			}
			if sp == nil {
				continue
			}
			sub, err := ExtractSection(sp)
			if err != nil {
				return nil, err
			}
			v = value.Of(sub)
		default:
			var lerr error
			v, lerr = leafValue(fv, d)
			if lerr != nil {
				return nil, &Error{Code: CodeTypeMismatch, Path: p, Key: d.Key, Type: rv.Type().String(), Expected: d.Expected(), Message: "cannot encode field", Cause: lerr}
			}
		}
		if v.IsAbsent() {
			continue
		}
		pairs = append(pairs, value.Pair{Key: d.Key, Value: v})
	}
	return value.NewTree(pairs...), nil
}

func leafValue(fv reflect.Value, d *schema.Descriptor) (value.Value, error) {
	switch d.Tag {
	case schema.TagTree:
		return value.Of(fv.Interface().(*value.Tree)), nil
	case schema.TagList:
		n := fv.Len()
		items := make([]value.Value, 0, n)
		for i := 0; i < n; i++ {
			it, err := scalarValue(fv.Index(i), d.Elem)
			if err != nil {
				return value.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, it)
		}
		return value.List(items...), nil
	}
	if d.Pointer {
		fv = fv.Elem()
	}
	return scalarValue(fv, d.Tag)
}

func scalarValue(fv reflect.Value, tag schema.Tag) (value.Value, error) {
	switch tag {
	case schema.TagDynamic:
		if v, ok := fv.Interface().(value.Value); ok {
			return v, nil
		}
		return value.FromAny(fv.Interface())
	case schema.TagString:
		return value.String(fv.String()), nil
	case schema.TagInt:
		return value.Int(fv.Int()), nil
	case schema.TagUint:
		u := fv.Uint()
		if u > math.MaxInt64 {
			return value.Value{}, fmt.Errorf("%d overflows int64", u)
		}
		return value.Int(int64(u)), nil
	case schema.TagFloat:
		return value.Float(fv.Float()), nil
	case schema.TagBool:
		return value.Bool(fv.Bool()), nil
	case schema.TagDuration:
		return value.String(time.Duration(fv.Int()).String()), nil
	case schema.TagText:
		m, ok := fv.Interface().(encoding.TextMarshaler)
		if !ok && fv.CanAddr() {
			m, ok = fv.Addr().Interface().(encoding.TextMarshaler)
		}
		if !ok {
			return value.Value{}, fmt.Errorf("%s does not implement encoding.TextMarshaler", fv.Type())
		}
		text, err := m.MarshalText()
		if err != nil {
			return value.Value{}, err
		}
		return value.String(string(text)), nil
	}
	return value.Value{}, fmt.Errorf("unsupported tag %s", tag)
}
