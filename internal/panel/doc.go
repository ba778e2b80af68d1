// Package panel loads entity-period fundamental panels from CSV files and
// Excel workbooks into quality.MetricRecord slices.
//
// The loaders are the ingestion boundary of the pipeline: a missing required
// column or a malformed numeric cell is rejected here with an error, never
// coerced to a default. An empty metric cell means the metric is missing for
// that entity-period and is preserved as an absent map key.
package panel
