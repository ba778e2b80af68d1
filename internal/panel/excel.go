package panel

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"qmjcli/internal/quality"
)

// LoadWorkbook reads a panel from an Excel workbook.
//
// The sheet holding the panel is discovered by probing each sheet's first
// row for the required entity_id and period headers, so exports that rename
// or reorder sheets still load. Row parsing and validation are identical to
// the CSV loader.
func LoadWorkbook(path string) ([]quality.MetricRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, sheetName, err := findPanelSheet(f)
	if err != nil {
		return nil, err
	}
	slog.Info("found panel sheet",
		slog.String("sheet_name", sheetName),
		slog.Int("total_rows", len(rows)))

	layout, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var records []quality.MetricRecord
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec, err := parseRow(layout, row)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", sheetName, i+2, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("workbook %s contains no data rows", path)
	}
	return records, nil
}

// findPanelSheet locates the first sheet whose header row carries the panel
// identity columns.
func findPanelSheet(f *excelize.File) ([][]string, string, error) {
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue
		}
		headerText := strings.ToLower(strings.Join(rows[0], " "))
		if strings.Contains(headerText, columnEntityID) && strings.Contains(headerText, columnPeriod) {
			return rows, name, nil
		}
	}
	return nil, "", fmt.Errorf("could not find a panel sheet in workbook")
}

// isBlankRow reports whether every cell of the row is empty.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
