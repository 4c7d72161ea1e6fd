// Package corpus discovers and loads the JSON source files of a dataset.
package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/record"
)

// DefaultPattern selects every file whose name contains "json".
const DefaultPattern = "*json*"

// Corpus maps source file names to their parsed documents.
type Corpus struct {
	dir   string
	names []string
	docs  map[string]record.Value
}

// New builds an in-memory corpus from already parsed documents.
func New(dir string, docs map[string]record.Value) *Corpus {
	c := &Corpus{dir: dir, docs: make(map[string]record.Value, len(docs))}
	for name, doc := range docs {
		c.docs[name] = doc
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c
}

// Dir returns the directory the corpus was loaded from.
func (c *Corpus) Dir() string { return c.dir }

// Names returns the subdomain names in lexicographic order.
func (c *Corpus) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Document returns the parsed document for name.
func (c *Corpus) Document(name string) (record.Value, bool) {
	doc, ok := c.docs[name]
	return doc, ok
}

// Len returns the number of loaded documents.
func (c *Corpus) Len() int { return len(c.names) }

// Discover lists the regular files in dir whose names match pattern, sorted
// lexicographically. An empty pattern means DefaultPattern.
func Discover(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, eris.Errorf("corpus: invalid pattern %q", pattern)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: list %s", dir)
	}

	var names []string
	for _, entry := range entries {
		ok, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			return nil, eris.Wrapf(err, "corpus: match %s", entry.Name())
		}
		if !ok {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load discovers the files of dir and parses each one. Files that cannot be
// read or parsed are logged and left out; only a discovery failure or a
// cancelled context is returned as an error.
func Load(ctx context.Context, dir, pattern string) (*Corpus, error) {
	log := zap.L().With(zap.String("component", "corpus"), zap.String("dir", dir))

	names, err := Discover(dir, pattern)
	if err != nil {
		return nil, err
	}
	log.Info("read corpus", zap.Strings("files", names))

	c := &Corpus{dir: dir, docs: make(map[string]record.Value, len(names))}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "corpus: load cancelled")
		}

		doc, err := readFile(filepath.Join(dir, name))
		if err != nil {
			log.Error("skipping file", zap.String("file", name), zap.Error(err))
			continue
		}
		c.docs[name] = doc
		c.names = append(c.names, name)
		log.Info("loaded file", zap.String("file", name), zap.Int("count", record.Len(doc)))
	}
	return c, nil
}

func readFile(path string) (record.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: read %s", path)
	}
	doc, err := record.FromJSON(data)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: parse %s", path)
	}
	return doc, nil
}
