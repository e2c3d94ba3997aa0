package confighelper

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	hclfmt "github.com/DavidNery/ConfigHelper/format/hcl"
	jsonfmt "github.com/DavidNery/ConfigHelper/format/json"
	yamlfmt "github.com/DavidNery/ConfigHelper/format/yaml"
	"github.com/DavidNery/ConfigHelper/value"
)

// Format turns raw document bytes into a value and back. Implementations
// must be safe for concurrent use.
type Format interface {
	// Name is the short identifier used by --format flags ("yaml", "json").
	Name() string
	// Extensions lists the file extensions handled, with the leading dot.
	Extensions() []string
	// Parse decodes a whole document. An empty document yields Absent.
	Parse(b []byte) (value.Value, error)
	// Emit encodes t as a whole document.
	Emit(t *value.Tree) ([]byte, error)
}

var (
	formatMu      sync.RWMutex
	formatsByName = map[string]Format{}
	formatsByExt  = map[string]Format{}
	defaultFormat Format
)

func init() {
	RegisterFormat(yamlfmt.Format())
	RegisterFormat(jsonfmt.Format())
	RegisterFormat(hclfmt.Format())
	defaultFormat = yamlfmt.Format()
}

// RegisterFormat makes f available by name and by each of its extensions,
// replacing earlier registrations; nil values are ignored.
func RegisterFormat(f Format) {
	if f == nil {
		return
	}
	formatMu.Lock()
	defer formatMu.Unlock()
	formatsByName[strings.ToLower(f.Name())] = f
	for _, ext := range f.Extensions() {
		formatsByExt[strings.ToLower(ext)] = f
	}
}

// FormatFor resolves the format of path by extension, falling back to YAML.
func FormatFor(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	formatMu.RLock()
	defer formatMu.RUnlock()
	if f, ok := formatsByExt[ext]; ok {
		return f
	}
	return defaultFormat
}

// FormatByName looks up a registered format by name.
func FormatByName(name string) (Format, bool) {
	formatMu.RLock()
	defer formatMu.RUnlock()
	f, ok := formatsByName[strings.ToLower(name)]
	return f, ok
}

// Formats returns the names of the registered formats.
func Formats() []string {
	formatMu.RLock()
	defer formatMu.RUnlock()
	out := make([]string, 0, len(formatsByName))
	for n := range formatsByName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
