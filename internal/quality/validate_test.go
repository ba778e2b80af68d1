package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePanel(t *testing.T) {
	params := DefaultParams()
	period := Period{Year: 2024}

	fullMetrics := func() map[string]float64 {
		m := make(map[string]float64, len(RequiredMetrics))
		for i, name := range RequiredMetrics {
			m[name] = float64(i)
		}
		return m
	}

	t.Run("valid panel passes", func(t *testing.T) {
		records := []MetricRecord{
			record("A", period, fullMetrics()),
			record("B", Period{Year: 2023}, fullMetrics()),
		}
		assert.NoError(t, ValidatePanel(records, params))
	})

	t.Run("empty panel fails", func(t *testing.T) {
		err := ValidatePanel(nil, params)
		require.Error(t, err)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "panel", verr.Field)
	})

	t.Run("duplicate entity-period fails", func(t *testing.T) {
		records := []MetricRecord{
			record("A", period, fullMetrics()),
			record("A", period, fullMetrics()),
		}
		err := ValidatePanel(records, params)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("metric column absent from the whole panel fails", func(t *testing.T) {
		m := fullMetrics()
		delete(m, "bab")
		delete(m, "evol")
		records := []MetricRecord{record("A", period, m)}

		err := ValidatePanel(records, params)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bab")
		assert.Contains(t, err.Error(), "evol")
	})

	t.Run("metric present for only some entities passes", func(t *testing.T) {
		partial := fullMetrics()
		delete(partial, "z")
		records := []MetricRecord{
			record("A", period, fullMetrics()),
			record("B", period, partial),
		}
		assert.NoError(t, ValidatePanel(records, params))
	})

	t.Run("empty entity identifier fails", func(t *testing.T) {
		records := []MetricRecord{record("", period, fullMetrics())}
		assert.Error(t, ValidatePanel(records, params))
	})

	t.Run("month out of range fails", func(t *testing.T) {
		records := []MetricRecord{record("A", Period{Year: 2024, Month: 13}, fullMetrics())}
		assert.Error(t, ValidatePanel(records, params))
	})
}

func TestParamsValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultParams().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"unknown missing policy", func(p *Params) { p.MissingPolicy = "drop" }},
		{"unknown composite policy", func(p *Params) { p.CompositePolicy = "maybe" }},
		{"unknown tie break", func(p *Params) { p.TieBreak = "random" }},
		{"zero top fraction", func(p *Params) { p.TopFraction = 0 }},
		{"negative bottom fraction", func(p *Params) { p.BottomFraction = -0.1 }},
		{"overlapping fractions", func(p *Params) { p.TopFraction = 0.6; p.BottomFraction = 0.6 }},
		{"no dimensions", func(p *Params) { p.Dimensions = DimensionMap{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			tt.mutate(&params)
			assert.Error(t, params.Validate())
		})
	}
}
