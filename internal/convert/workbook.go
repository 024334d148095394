package convert

import (
	"fmt"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dkwon17/csvflow/internal/models"
)

// maxSheetNameLen is the xlsx format's hard limit on sheet name length.
const maxSheetNameLen = 31

// invalidSheetChars replaces characters the xlsx format rejects in sheet
// names.
var invalidSheetChars = strings.NewReplacer(
	"[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_",
)

// baseSheetName derives a sheet name from a blob object name: base
// filename with the extension stripped, sanitized, and cut at the sheet
// name limit. Sheet names may not begin or end with an apostrophe, and an
// empty result (an extension-only filename) gets a placeholder; collisions
// with real names are resolved by uniqueSheetNames like any other.
func baseSheetName(objectName string) string {
	base := path.Base(objectName)
	name := strings.TrimSuffix(base, path.Ext(base))
	name = invalidSheetChars.Replace(name)
	name = truncateRunes(strings.Trim(name, "'"), maxSheetNameLen)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	return name
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// uniqueSheetNames resolves name collisions deterministically: the first
// table keeps the plain name, later ones get " 2", " 3", and so on, with
// the base cut back so the suffixed name still fits the limit. Sheet names
// are case-insensitive in the xlsx format, so collisions are detected that
// way too.
func uniqueSheetNames(tables []models.SheetTable) []string {
	names := make([]string, len(tables))
	seen := make(map[string]bool, len(tables))
	for i, table := range tables {
		name := table.SheetName
		for n := 2; seen[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" %d", n)
			name = truncateRunes(table.SheetName, maxSheetNameLen-len(suffix)) + suffix
		}
		seen[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// assembleWorkbook builds one workbook with one sheet per table, in the
// order given, rows and cells verbatim. The sheet count always equals the
// table count; no table is ever dropped.
func assembleWorkbook(tables []models.SheetTable) (*excelize.File, error) {
	f := excelize.NewFile()
	names := uniqueSheetNames(tables)

	for i, table := range tables {
		name := names[i]
		if i == 0 {
			// Repurpose the default sheet excelize creates.
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
			}
		}

		for r, row := range table.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, fmt.Errorf("failed to address row %d of sheet %q: %w", r+1, name, err)
			}
			cells := make([]interface{}, len(row))
			for c, value := range row {
				cells[c] = value
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return nil, fmt.Errorf("failed to write row %d of sheet %q: %w", r+1, name, err)
			}
		}
	}
	return f, nil
}
