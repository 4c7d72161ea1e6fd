// Package validate implements the round-trip validity filter applied to
// shaped subdomain records before and after flattening.
package validate

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/record"
)

// Entry is a record that passed the round-trip check, carried as its literal text.
type Entry struct {
	ID   string
	Text string
}

// RoundTrip renders v as literal text and reports whether that text survives a
// lossless JSON encode/decode cycle and parses back as a literal.
func RoundTrip(v record.Value) (string, bool) {
	text := record.Render(v)

	encoded, err := json.Marshal(text)
	if err != nil {
		return text, false
	}
	var decoded string
	if err := json.Unmarshal(encoded, &decoded); err != nil || decoded != text {
		return text, false
	}

	if _, err := record.ParseLiteral(decoded); err != nil {
		return text, false
	}
	return text, true
}

// ValidCorpus keeps the candidates whose values pass RoundTrip, in candidate
// order, and returns how many were rejected. Rejected values are logged
// with their raw content.
func ValidCorpus(candidates *record.Object) ([]Entry, int) {
	log := zap.L().With(zap.String("component", "validate"))

	entries := make([]Entry, 0, candidates.Len())
	rejected := 0
	candidates.Range(func(id string, v record.Value) bool {
		text, ok := RoundTrip(v)
		if !ok {
			log.Warn("invalid record", zap.String("id", id), zap.String("raw", text))
			rejected++
			return true
		}
		entries = append(entries, Entry{ID: id, Text: text})
		return true
	})
	return entries, rejected
}
