package quality

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFactorReturns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "qmj.csv")

	returns := []PeriodFactorReturn{
		{Period: Period{Year: 2020}, QualityReturn: 10, JunkReturn: 1, QMJ: 9},
		{Period: Period{Year: 2021, Month: 3}, QualityReturn: 0.5, JunkReturn: Missing(), QMJ: Missing()},
	}

	require.NoError(t, SaveFactorReturns(returns, path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"period", "quality_return", "junk_return", "qmj"}, rows[0])
	assert.Equal(t, "2020", rows[1][0])
	assert.Equal(t, "9.000000", rows[1][3])
	assert.Equal(t, "2021-03", rows[2][0])
	assert.Equal(t, "", rows[2][2], "missing renders as empty cell")
	assert.Equal(t, "", rows[2][3])
}

func TestSaveFactorReturnsEmpty(t *testing.T) {
	err := SaveFactorReturns(nil, filepath.Join(t.TempDir(), "qmj.csv"))
	assert.Error(t, err)
}

func TestSaveAssignments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assignments.csv")
	period := Period{Year: 2024}

	ranked := []RankedEntity{
		{EntityID: "A", Period: period, Quality: 1.5, Rank: 1},
		{EntityID: "B", Period: period, Quality: -0.5, Rank: 2},
	}
	assignments := []PortfolioAssignment{
		{EntityID: "A", Period: period, Bucket: BucketQuality},
		{EntityID: "B", Period: period, Bucket: BucketJunk},
	}

	require.NoError(t, SaveAssignments(ranked, assignments, path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024", "A", "1.500000", "1", "Quality"}, rows[1])
	assert.Equal(t, []string{"2024", "B", "-0.500000", "2", "Junk"}, rows[2])
}
