// Package confighelper binds configuration documents to tagged Go structs.
//
// Documents are parsed into immutable value trees (package value) by a
// pluggable Format (YAML by default, JSON and HCL by extension). A Binder
// walks a tree and assigns every key declared with a `config` struct tag;
// Unbind walks the struct back into a tree for saving.
//
// Design policy:
//   - Keep public APIs in the root package; put descriptor building and
//     logging under internal/.
//   - Place format drivers under format/ and the CLI under cmd/confighelper.
//   - Prefer black-box testing against public APIs.
//
// A field is either a leaf (scalar, list, duration, text value or dynamic
// value), a nested struct bound recursively, or a raw section: a type that
// supplies a Store, whose whole subtree is injected verbatim. A type
// supplies a store by embedding Store or by implementing StoreProvider. A
// field whose interface type embeds StoreProvider is a section too. A
// store-backed type cannot also declare keys: binding, saving or nesting
// one fails with ErrSchema.
//
// A field typed any receives plain Go values for scalars, []any for lists
// and *value.Tree for trees, so key order survives a save. Use value.Value
// to keep the exact kind.
//
// Typical usage:
//
//	type Server struct {
//		Host string        `config:"host"`
//		Port int           `config:"port"`
//		TLS  *TLS          `config:"tls"`
//		Raw  *confighelper.Store `config:"extra"`
//	}
//
//	f := confighelper.NewFile("server.yml", confighelper.WithReplaceIfExists())
//	var s Server
//	if err := f.Load(&s); err != nil {
//		if errors.Is(err, confighelper.ErrNotFound) {
//			...
//		}
//	}
//	err = f.Save(&s)
//
// Failures are *Error values carrying a Code, the dotted document path and,
// for type mismatches, the expected and found kinds. WithFailFast(false)
// collects every failure of a bind pass into Issues.
package confighelper
