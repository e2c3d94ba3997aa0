package confighelper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DavidNery/ConfigHelper/internal/logging"
	"github.com/DavidNery/ConfigHelper/value"
)

// DefaultFileName is used when File.Name is empty.
const DefaultFileName = "config.yml"

// File loads and saves tagged structs and sections from one backing file.
//
// The zero File reads and writes DefaultFileName in the working directory,
// picks the format by extension and never overwrites an existing file.
type File struct {
	// Name is the backing file path.
	Name string
	// ReplaceIfExists allows saves to overwrite an existing file. Without it
	// saving over an existing file is a silent no-op.
	ReplaceIfExists bool
	// Format overrides extension-based format resolution.
	Format Format
	// Binder used for Load and Save; nil means the default Binder.
	Binder *Binder
	// Debounce is the quiet period Watch waits for after a change.
	Debounce time.Duration
}

// FileOption configures a File.
type FileOption func(*File)

// WithReplaceIfExists lets saves overwrite an existing file.
func WithReplaceIfExists() FileOption {
	return func(f *File) { f.ReplaceIfExists = true }
}

// WithFormat forces the document format.
func WithFormat(format Format) FileOption {
	return func(f *File) { f.Format = format }
}

// WithBinder sets the Binder used by the file.
func WithBinder(b *Binder) FileOption {
	return func(f *File) { f.Binder = b }
}

// WithDebounce sets the Watch quiet period.
func WithDebounce(d time.Duration) FileOption {
	return func(f *File) { f.Debounce = d }
}

// NewFile returns a File for name with the given options applied.
func NewFile(name string, opts ...FileOption) *File {
	f := &File{Name: name}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *File) path() string {
	if f.Name == "" {
		return DefaultFileName
	}
	return f.Name
}

func (f *File) binder() *Binder {
	if f.Binder != nil {
		return f.Binder
	}
	return defaultBinder
}

func (f *File) format(path string) Format {
	if f.Format != nil {
		return f.Format
	}
	return FormatFor(path)
}

func (f *File) log() *slog.Logger { return logging.For("file") }

// Load binds the backing file into target.
func (f *File) Load(target any) error { return f.LoadFrom(f.path(), target) }

// LoadFrom binds the file at path into target.
func (f *File) LoadFrom(path string, target any) error {
	t, err := f.ReadTree(path)
	if err != nil {
		return err
	}
	if err := f.binder().Bind(target, t); err != nil {
		return err
	}
	f.log().Info("loaded config", "path", path, "target", fmt.Sprintf("%T", target))
	return nil
}

// LoadToSection injects the whole backing file into section.
func (f *File) LoadToSection(section StoreProvider) error {
	return f.LoadFromToSection(f.path(), section)
}

// LoadFromToSection injects the whole file at path into section.
func (f *File) LoadFromToSection(path string, section StoreProvider) error {
	t, err := f.ReadTree(path)
	if err != nil {
		return err
	}
	if err := f.binder().InjectSection(section, t); err != nil {
		return err
	}
	f.log().Info("loaded config into section", "path", path, "section", fmt.Sprintf("%T", section))
	return nil
}

// ReadTree reads and parses the file at path. A missing file is ErrNotFound;
// a document that is not a keyed mapping, including an empty or null one,
// is ErrMalformedDocument.
func (f *File) ReadTree(path string) (*value.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Code: CodeNotFound, File: path, Message: "config file does not exist", Cause: err}
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	format := f.format(path)
	v, err := format.Parse(data)
	if err != nil {
		return nil, &Error{Code: CodeParseError, File: path, Message: format.Name() + " document", Cause: err}
	}
	if v.IsAbsent() {
		return nil, &Error{Code: CodeMalformedDocument, File: path, Found: value.KindAbsent, Message: "document is empty or null"}
	}
	t, ok := v.AsTree()
	if !ok {
		return nil, &Error{Code: CodeMalformedDocument, File: path, Found: v.Kind(), Message: fmt.Sprintf("top level is a %s", v.Kind())}
	}
	return t, nil
}

// Save unbinds source into the backing file.
func (f *File) Save(source any) error { return f.SaveTo(f.path(), source) }

// SaveTo unbinds source into the file at path.
func (f *File) SaveTo(path string, source any) error {
	t, err := f.binder().Unbind(source)
	if err != nil {
		return err
	}
	_, err = f.WriteTree(path, t)
	return err
}

// SaveFromSection writes the store of section to the backing file.
func (f *File) SaveFromSection(section StoreProvider) error {
	return f.SaveSectionTo(f.path(), section)
}

// SaveSectionTo writes the store of section to the file at path.
func (f *File) SaveSectionTo(path string, section StoreProvider) error {
	t, err := ExtractSection(section)
	if err != nil {
		return err
	}
	_, err = f.WriteTree(path, t)
	return err
}

// WriteTree encodes t into the file at path, creating parent directories.
// It reports whether the file was written: an existing file is left alone
// unless ReplaceIfExists is set.
func (f *File) WriteTree(path string, t *value.Tree) (bool, error) {
	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !os.IsNotExist(statErr) {
		return false, fmt.Errorf("stat %s: %w", path, statErr)
	}
	if exists && !f.ReplaceIfExists {
		f.log().Debug("file exists and replace is disabled, not saving", "path", path)
		return false, nil
	}
	data, err := f.format(path).Emit(t)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	f.log().Info("saved config", "path", path)
	return true, nil
}

const defaultDebounce = 100 * time.Millisecond

// Watch reloads the backing file whenever it is written or replaced. For
// each change newTarget supplies a fresh instance, which is loaded and
// handed to onChange together with the load error, if any. Watch blocks
// until ctx is cancelled.
func (f *File) Watch(ctx context.Context, newTarget func() any, onChange func(any, error)) error {
	path, err := filepath.Abs(f.path())
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	f.log().Info("watching for changes", "path", path)

	debounce := f.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			target := newTarget()
			err := f.LoadFrom(path, target)
			if err != nil {
				f.log().Warn("reload failed", "path", path, "error", err)
			}
			onChange(target, err)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log().Error("watcher error", "path", path, "error", err)
		}
	}
}
