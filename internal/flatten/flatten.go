// Package flatten turns nested records into single-level attribute maps.
package flatten

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/record"
)

// KeyMode selects how composite paths become attribute names.
type KeyMode string

const (
	// KeyModeShort keeps only the last non-numeric path segment. Same-named
	// leaves collapse into one attribute, last write wins.
	KeyModeShort KeyMode = "short"
	// KeyModePath keeps the full composite path.
	KeyModePath KeyMode = "path"
)

// ParseKeyMode converts a config string into a KeyMode.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case "", KeyModeShort:
		return KeyModeShort, nil
	case KeyModePath:
		return KeyModePath, nil
	default:
		return "", eris.Errorf("flatten: unknown key mode %q (valid: short, path)", s)
	}
}

var (
	// ErrNotObject is returned when the input record is not an object.
	ErrNotObject = eris.New("flatten: record is not an object")
	// ErrEmpty is returned for a record without any keys.
	ErrEmpty = eris.New("flatten: record is empty")
	// ErrNoName is returned when a path has no non-numeric segment.
	ErrNoName = eris.New("flatten: key has no name segment")
)

// Options configures an Engine.
type Options struct {
	Separator string
	KeyMode   KeyMode
	Reserved  []string
}

// DefaultOptions returns the standard flattening setup: "_" separator,
// short keys and the "specification" field removed.
func DefaultOptions() Options {
	return Options{
		Separator: "_",
		KeyMode:   KeyModeShort,
		Reserved:  []string{"specification"},
	}
}

// Engine flattens records.
type Engine struct {
	opts Options
}

// New creates an Engine. Empty option fields fall back to DefaultOptions.
func New(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Separator == "" {
		opts.Separator = def.Separator
	}
	if opts.KeyMode == "" {
		opts.KeyMode = def.KeyMode
	}
	if opts.Reserved == nil {
		opts.Reserved = def.Reserved
	}
	return &Engine{opts: opts}
}

// Flatten produces the cleaned flat record for v: paths flattened, keys
// named per the key mode, strings trimmed and reserved fields removed.
func (e *Engine) Flatten(v record.Value) (*record.Object, error) {
	obj, ok := v.(*record.Object)
	if !ok {
		return nil, eris.Wrapf(ErrNotObject, "got %s", record.TypeName(v))
	}
	if obj.Len() == 0 {
		return nil, ErrEmpty
	}

	long := Paths(obj, e.opts.Separator)

	out := record.NewObject()
	var err error
	long.Range(func(path string, val record.Value) bool {
		var key string
		key, err = e.Name(path)
		if err != nil {
			return false
		}
		if s, ok := val.(string); ok {
			val = strings.TrimSpace(s)
		}
		out.Set(key, val)
		return true
	})
	if err != nil {
		return nil, err
	}

	for _, reserved := range e.opts.Reserved {
		if e.opts.KeyMode == KeyModeShort {
			out.Delete(reserved)
			continue
		}
		for _, key := range out.Keys() {
			if lastName(key, e.opts.Separator) == reserved {
				out.Delete(key)
			}
		}
	}
	return out, nil
}

// Name maps a composite path onto its attribute name.
func (e *Engine) Name(path string) (string, error) {
	if e.opts.KeyMode == KeyModePath {
		return path, nil
	}
	name := lastName(path, e.opts.Separator)
	if name == "" && !hasNameSegment(path, e.opts.Separator) {
		return "", eris.Wrapf(ErrNoName, "key %q", path)
	}
	return name, nil
}

// Paths flattens obj into composite path keys. Non-empty objects and arrays
// are descended into; scalars and empty containers become leaves. Keys of
// obj itself are used unchanged, nested segments are joined with sep and
// array positions appear as decimal segments.
func Paths(obj *record.Object, sep string) *record.Object {
	out := record.NewObject()
	obj.Range(func(k string, v record.Value) bool {
		walk(out, k, v, sep)
		return true
	})
	return out
}

func walk(out *record.Object, key string, v record.Value, sep string) {
	switch t := v.(type) {
	case *record.Object:
		if t.Len() == 0 {
			out.Set(key, t)
			return
		}
		t.Range(func(k string, child record.Value) bool {
			walk(out, join(key, k, sep), child, sep)
			return true
		})
	case []record.Value:
		if len(t) == 0 {
			out.Set(key, t)
			return
		}
		for i, child := range t {
			walk(out, join(key, strconv.Itoa(i), sep), child, sep)
		}
	default:
		out.Set(key, v)
	}
}

func join(parent, child, sep string) string {
	if parent == "" {
		return child
	}
	return parent + sep + child
}

// lastName returns the last path segment that is not numeric.
func lastName(path, sep string) string {
	segs := strings.Split(path, sep)
	for i := len(segs) - 1; i >= 0; i-- {
		if !isNumeric(segs[i]) {
			return segs[i]
		}
	}
	return ""
}

func hasNameSegment(path, sep string) bool {
	for _, seg := range strings.Split(path, sep) {
		if !isNumeric(seg) {
			return true
		}
	}
	return false
}

// isNumeric reports whether s is non-empty and made only of numeric runes.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
