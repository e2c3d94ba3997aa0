package confighelper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DavidNery/ConfigHelper/value"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeNotFound          = "not_found"
	CodeMalformedDocument = "malformed_document"
	CodeParseError        = "parse_error"
	CodeTypeMismatch      = "type_mismatch"
	CodeSectionInvalid    = "section_invalid"
	CodeConstruction      = "construction_failed"
	CodeSchemaInvalid     = "schema_invalid"
)

// Sentinels matched through errors.Is against *Error values of the same code.
var (
	ErrNotFound          = errors.New("confighelper: not found")
	ErrMalformedDocument = errors.New("confighelper: document is not a keyed mapping")
	ErrParse             = errors.New("confighelper: parse error")
	ErrTypeMismatch      = errors.New("confighelper: incompatible key type")
	ErrSection           = errors.New("confighelper: section not valid")
	ErrConstruction      = errors.New("confighelper: cannot construct default instance")
	ErrSchema            = errors.New("confighelper: invalid binding schema")
)

var sentinelByCode = map[string]error{
	CodeNotFound:          ErrNotFound,
	CodeMalformedDocument: ErrMalformedDocument,
	CodeParseError:        ErrParse,
	CodeTypeMismatch:      ErrTypeMismatch,
	CodeSectionInvalid:    ErrSection,
	CodeConstruction:      ErrConstruction,
	CodeSchemaInvalid:     ErrSchema,
}

// Error is a single binding or loading failure.
type Error struct {
	Code     string
	Path     string     // Dotted path from the document root (empty for the root).
	Key      string     // Declared key name, when the failure belongs to one.
	Type     string     // Go type owning the key or the section.
	Expected string     // Declared kind (type mismatches only).
	Found    value.Kind // Runtime kind of the incoming value (type mismatches and malformed documents).
	File     string     // Backing file, for load and save failures.
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	b := &strings.Builder{}
	switch e.Code {
	case CodeTypeMismatch:
		// Same shape as the legacy message so logs stay greppable.
		fmt.Fprintf(b, "found %s in %q config key, but %q is %s", e.Found, e.Path, e.Key, e.Expected)
		if e.Type != "" {
			fmt.Fprintf(b, " in %s", e.Type)
		}
	default:
		b.WriteString(e.Code)
		if e.File != "" {
			fmt.Fprintf(b, " in %s", e.File)
		}
		if e.Path != "" {
			fmt.Fprintf(b, " at %s", e.Path)
		}
		if e.Message != "" {
			b.WriteString(": ")
			b.WriteString(e.Message)
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the sentinel for e.Code.
func (e *Error) Is(target error) bool {
	s, ok := sentinelByCode[e.Code]
	return ok && s == target
}

// Issues is a collection of failures that implements error. It is returned by
// best-effort binding (WithFailFast(false)).
type Issues []*Error

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(iss[i].Error())
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes every issue to errors.Is / errors.As.
func (iss Issues) Unwrap() []error {
	out := make([]error, len(iss))
	for i, e := range iss {
		out[i] = e
	}
	return out
}

// AsIssues extracts Issues from an error. A single *Error is returned as a
// one-element collection.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	var e *Error
	if errors.As(err, &e) {
		return Issues{e}, true
	}
	return nil, false
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
