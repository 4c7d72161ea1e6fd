package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/corpus-cli/internal/schema"
)

// Schema output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteSchema writes the sorted column names to w: one per line for text, a
// JSON array or a YAML list.
func WriteSchema(w io.Writer, cols schema.Columns, format string) error {
	names := cols.Sorted()
	switch format {
	case "", FormatText:
		for _, name := range names {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return eris.Wrap(err, "export: write schema")
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(names), "export: encode schema json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]string{"columns": names}); err != nil {
			return eris.Wrap(err, "export: encode schema yaml")
		}
		return eris.Wrap(enc.Close(), "export: close yaml encoder")
	default:
		return eris.Errorf("export: unknown schema format %q (valid: text, json, yaml)", format)
	}
}
