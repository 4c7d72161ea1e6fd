// Package schema computes the unified column set of cleaned records.
package schema

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/corpus-cli/internal/record"
)

// Columns is a set of normalized column names.
type Columns map[string]struct{}

// NormalName lowercases s and replaces spaces and dots with underscores.
// Already normalized names are returned unchanged.
func NormalName(s string) string {
	s = strings.NewReplacer(" ", "_", ".", "_").Replace(s)
	return cases.Lower(language.Und).String(s)
}

// Index returns the union of normalized column names over every flat
// record of every subdomain in clean.
func Index(clean map[string]map[string]*record.Object) Columns {
	cols := make(Columns)
	for _, records := range clean {
		for _, flat := range records {
			for _, key := range flat.Keys() {
				cols.Add(key)
			}
		}
	}
	return cols
}

// Add inserts the normalized form of name.
func (c Columns) Add(name string) {
	c[NormalName(name)] = struct{}{}
}

// Has reports whether the normalized form of name is present.
func (c Columns) Has(name string) bool {
	_, ok := c[NormalName(name)]
	return ok
}

// Len returns the number of columns.
func (c Columns) Len() int { return len(c) }

// Sorted returns the column names in lexicographic order.
func (c Columns) Sorted() []string {
	out := make([]string, 0, len(c))
	for name := range c {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
