package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"qmjcli/internal/quality"
)

// Required non-metric columns of the input panel.
const (
	columnEntityID  = "entity_id"
	columnPeriod    = "period"
	columnPrice     = "price"
	columnPrevPrice = "prev_price"
)

// LoadCSV reads a panel from a CSV file.
//
// The header row must contain entity_id, period, price, prev_price, and the
// fourteen raw metric columns (quality.RequiredMetrics); a missing column is
// a fatal configuration error reported before any row is parsed. Column
// order is free and matching is case-insensitive.
func LoadCSV(path string) ([]quality.MetricRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open panel file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read panel header: %w", err)
	}

	layout, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var records []quality.MetricRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read panel row: %w", err)
		}
		line++

		rec, err := parseRow(layout, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("panel file %s contains no data rows", path)
	}
	return records, nil
}

// columnLayout maps required column names to their index in the header.
type columnLayout struct {
	entityID  int
	period    int
	price     int
	prevPrice int
	metrics   map[string]int
}

// mapColumns resolves the header into a column layout, failing with the full
// list of absent required columns.
func mapColumns(header []string) (*columnLayout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[normalizeHeader(name)] = i
	}

	layout := &columnLayout{metrics: make(map[string]int, len(quality.RequiredMetrics))}
	var missing []string

	find := func(name string) int {
		i, ok := index[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	layout.entityID = find(columnEntityID)
	layout.period = find(columnPeriod)
	layout.price = find(columnPrice)
	layout.prevPrice = find(columnPrevPrice)
	for _, name := range quality.RequiredMetrics {
		if i := find(name); i >= 0 {
			layout.metrics[name] = i
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("panel is missing required columns: %s", strings.Join(missing, ", "))
	}
	return layout, nil
}

// normalizeHeader lowercases a header cell and strips a UTF-8 BOM if the
// file was exported from a spreadsheet tool.
func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
}

// parseRow converts one data row into a MetricRecord, failing fast on any
// malformed value. Empty metric cells become missing metrics; price cells
// must always be present and numeric.
func parseRow(layout *columnLayout, row []string) (quality.MetricRecord, error) {
	var rec quality.MetricRecord

	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec.EntityID = cell(layout.entityID)
	if rec.EntityID == "" {
		return rec, fmt.Errorf("empty entity_id")
	}

	period, err := ParsePeriod(cell(layout.period))
	if err != nil {
		return rec, err
	}
	rec.Period = period

	rec.Price, err = parsePrice(columnPrice, cell(layout.price))
	if err != nil {
		return rec, err
	}
	rec.PrevPrice, err = parsePrice(columnPrevPrice, cell(layout.prevPrice))
	if err != nil {
		return rec, err
	}

	rec.Metrics = make(map[string]float64, len(layout.metrics))
	for name, i := range layout.metrics {
		raw := cell(i)
		if raw == "" {
			continue // missing metric, preserved as absent
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, fmt.Errorf("metric %s: malformed value %q", name, raw)
		}
		rec.Metrics[name] = v
	}

	return rec, nil
}

// parsePrice parses a required numeric cell.
func parsePrice(column, raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s: empty value", column)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: malformed value %q", column, raw)
	}
	return v, nil
}

// ParsePeriod parses "2024" (annual) or "2024-03" (monthly) period keys.
func ParsePeriod(raw string) (quality.Period, error) {
	var p quality.Period
	if raw == "" {
		return p, fmt.Errorf("period: empty value")
	}

	parts := strings.SplitN(raw, "-", 2)
	year, err := strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return p, fmt.Errorf("period: malformed value %q", raw)
	}
	p.Year = year

	if len(parts) == 2 {
		month, err := strconv.Atoi(parts[1])
		if err != nil || month < 1 || month > 12 {
			return p, fmt.Errorf("period: malformed month in %q", raw)
		}
		p.Month = month
	}
	return p, nil
}
