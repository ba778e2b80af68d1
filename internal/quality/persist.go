package quality

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SaveFactorReturns writes the factor return series to a CSV file, one row
// per period, ordered by period. Missing values are written as empty cells.
func SaveFactorReturns(returns []PeriodFactorReturn, outputPath string) error {
	if len(returns) == 0 {
		return fmt.Errorf("no factor returns to save")
	}

	writer, file, err := createCSV(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()
	defer writer.Flush()

	header := []string{"period", "quality_return", "junk_return", "qmj"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, fr := range returns {
		record := []string{
			fr.Period.String(),
			formatMaybe(fr.QualityReturn),
			formatMaybe(fr.JunkReturn),
			formatMaybe(fr.QMJ),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write CSV record for %s: %w", fr.Period, err)
		}
	}

	return writer.Error()
}

// SaveAssignments writes the per-entity ranking and bucket detail, ordered
// by period then rank.
func SaveAssignments(ranked []RankedEntity, assignments []PortfolioAssignment, outputPath string) error {
	if len(ranked) == 0 {
		return fmt.Errorf("no assignments to save")
	}

	buckets := make(map[string]Bucket, len(assignments))
	for _, a := range assignments {
		buckets[a.EntityID+"|"+a.Period.String()] = a.Bucket
	}

	writer, file, err := createCSV(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()
	defer writer.Flush()

	header := []string{"period", "entity_id", "quality", "rank", "bucket"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, re := range ranked {
		bucket := buckets[re.EntityID+"|"+re.Period.String()]
		record := []string{
			re.Period.String(),
			re.EntityID,
			formatMaybe(re.Quality),
			strconv.Itoa(re.Rank),
			bucket.String(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write CSV record for %s: %w", re.EntityID, err)
		}
	}

	return writer.Error()
}

// createCSV opens outputPath for writing, creating parent directories.
func createCSV(outputPath string) (*csv.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create CSV file: %w", err)
	}
	return csv.NewWriter(file), file, nil
}

// formatMaybe renders a possibly-missing value; missing becomes an empty
// cell so downstream consumers never mistake it for zero.
func formatMaybe(v float64) string {
	if IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
