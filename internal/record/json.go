package record

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// FromJSON decodes a JSON document, keeping object keys in document order.
// Duplicate keys keep their first position and the last value. The
// non-standard tokens NaN, Infinity and -Infinity decode to float64 so that
// a single non-finite value fails its own record rather than the document.
// Input must be UTF-8.
func FromJSON(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return nil, eris.New("record: invalid utf-8")
	}
	if !gjson.ValidBytes(maskNonFinite(data)) {
		return nil, eris.New("record: invalid json")
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

var nonFinite = [][]byte{[]byte("NaN"), []byte("Infinity"), []byte("-Infinity")}

// maskNonFinite returns data with every NaN, Infinity and -Infinity token
// outside a string replaced by a zero of the same width, for validation.
func maskNonFinite(data []byte) []byte {
	var out []byte
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		for _, tok := range nonFinite {
			if !bytes.HasPrefix(data[i:], tok) || (tok[0] != '-' && i > 0 && data[i-1] == '-') {
				continue
			}
			if out == nil {
				out = append([]byte(nil), data...)
			}
			out[i] = '0'
			for j := i + 1; j < i+len(tok); j++ {
				out[j] = ' '
			}
			i += len(tok) - 1
			break
		}
	}
	if out == nil {
		return data
	}
	return out
}

func fromResult(r gjson.Result) Value {
	switch {
	case r.IsObject():
		obj := NewObject()
		r.ForEach(func(k, v gjson.Result) bool {
			obj.Set(k.String(), fromResult(v))
			return true
		})
		return obj
	case r.IsArray():
		arr := make([]Value, 0)
		r.ForEach(func(_, v gjson.Result) bool {
			arr = append(arr, fromResult(v))
			return true
		})
		return arr
	}

	switch r.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		return r.String()
	case gjson.Number:
		return number(r.Raw)
	default:
		return nil
	}
}

// number keeps integer literals exact and turns everything else into a
// float64. Out-of-range floats become ±Inf.
func number(raw string) Value {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "NaN":
		return math.NaN()
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.ContainsAny(raw, ".eE") {
		f, _ := strconv.ParseFloat(raw, 64)
		return f
	}
	return json.Number(raw)
}
