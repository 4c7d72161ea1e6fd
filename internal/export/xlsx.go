// Package export writes ingestion results and schemas to files.
package export

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/record"
	"github.com/sells-group/corpus-cli/internal/schema"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// KeyColumn heads the column holding the store key of each record. It is
// distinct from any "id" field the records carry themselves.
const KeyColumn = "record_id"

// WriteWorkbook writes one sheet per subdomain of res to path. Each sheet has
// a KeyColumn followed by the sorted schema columns and one row per clean
// record. Columns a record does not carry are left blank.
func WriteWorkbook(path string, res *ingest.Result, cols schema.Columns) error {
	log := zap.L().With(zap.String("component", "export.xlsx"), zap.String("path", path))

	f := xlsx.NewFile()
	header := append([]string{KeyColumn}, cols.Sorted()...)
	used := make(map[string]bool)

	subdomains := res.Subdomains()
	if len(subdomains) == 0 {
		// A workbook needs at least one sheet.
		sheet, err := f.AddSheet("corpus")
		if err != nil {
			return eris.Wrap(err, "xlsx: add sheet")
		}
		addStringRow(sheet, header)
	}

	for _, sub := range subdomains {
		name := sheetName(sub, used)
		sheet, err := f.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", name)
		}
		addStringRow(sheet, header)

		ids := res.IDs(sub)
		for _, id := range ids {
			clean, _ := res.CleanIn(sub, id)
			byColumn := make(map[string]record.Value, clean.Len())
			clean.Range(func(k string, v record.Value) bool {
				byColumn[schema.NormalName(k)] = v
				return true
			})

			row := sheet.AddRow()
			row.AddCell().SetString(id)
			for _, col := range header[1:] {
				setCell(row.AddCell(), byColumn[col])
			}
		}
		log.Debug("wrote sheet", zap.String("subdomain", sub), zap.String("sheet", name), zap.Int("rows", len(ids)))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	log.Info("workbook written", zap.Int("sheets", len(f.Sheets)), zap.Int("columns", len(header)))
	return nil
}

// sheetName turns a subdomain name into a unique, valid sheet name and marks
// it used. Characters Excel forbids become '_' and names are cut to 31
// characters.
func sheetName(subdomain string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, subdomain)
	base = strings.Trim(base, "'")
	if base == "" {
		base = "sheet"
	}

	name := truncate(base, maxSheetName)
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := "~" + strconv.Itoa(n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func setCell(cell *xlsx.Cell, v record.Value) {
	switch t := v.(type) {
	case nil:
		cell.SetString("")
	case string:
		cell.SetString(t)
	case bool:
		cell.SetBool(t)
	case float64:
		cell.SetFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			cell.SetInt64(n)
			return
		}
		cell.SetString(t.String())
	default:
		cell.SetString(record.Render(v))
	}
}
