package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"qmjcli/internal/config"
	"qmjcli/internal/exporter"
	"qmjcli/internal/infrastructure"
	"qmjcli/internal/panel"
	"qmjcli/internal/quality"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		input      string
		format     string
		outputDir  string
		configFile string
		workers    int
		strict     bool
	)
	fs := flag.NewFlagSet("factor-report", flag.ContinueOnError)
	fs.StringVar(&input, "input", "", "input panel file (overrides config)")
	fs.StringVar(&format, "format", "", "input format: csv or xlsx (overrides config)")
	fs.StringVar(&outputDir, "out", "", "output directory (overrides config)")
	fs.StringVar(&configFile, "config", "config.yaml", "configuration file path")
	fs.IntVar(&workers, "workers", 0, "period-parallel worker count (overrides config)")
	fs.BoolVar(&strict, "strict", false, "require all four dimensions for the composite score")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}
	applyOverrides(cfg, input, format, outputDir, workers, strict)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	ctx, runID := infrastructure.NewRunContext(context.Background())
	logger.InfoContext(ctx, "starting factor report", "run_id", runID)

	providers, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize OpenTelemetry", "error", err)
		return 1
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Error("OpenTelemetry shutdown failed", "error", err)
		}
	}()

	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	if cfg.Metrics.Enabled {
		go providers.ServeMetrics(serveCtx, cfg.Metrics.Listen)
	}

	if cfg.Input.Path == "" {
		logger.ErrorContext(ctx, "No input panel specified", "hint", "use -input or set input.path in config")
		return 1
	}

	records, err := loadPanel(cfg.Input.Path, cfg.Input.Format)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load panel", "path", cfg.Input.Path, "error", err)
		return 1
	}
	logger.InfoContext(ctx, "loaded panel", "records", len(records))

	calc := quality.NewCalculator(cfg.Params(), logger)
	calc.SetMaxConcurrency(cfg.Pipeline.Workers)

	runCtx, span := providers.StartRunSpan(ctx, runID)
	start := time.Now()
	result, err := calc.Calculate(runCtx, records)
	duration := time.Since(start)
	span.End()

	if err != nil {
		logger.ErrorContext(ctx, "Factor calculation failed", "error", err)
		return 1
	}
	providers.RecordRun(ctx, result.Stats, duration)

	factorPath := filepath.Join(cfg.Output.Dir, cfg.Output.FactorFile)
	if err := quality.SaveFactorReturns(result.FactorReturns, factorPath); err != nil {
		logger.ErrorContext(ctx, "Failed to save factor returns", "error", err)
		return 1
	}

	assignmentsPath := filepath.Join(cfg.Output.Dir, cfg.Output.AssignmentsFile)
	if err := quality.SaveAssignments(result.Ranked, result.Assignments, assignmentsPath); err != nil {
		logger.ErrorContext(ctx, "Failed to save assignments", "error", err)
		return 1
	}

	if err := writeRunSummary(cfg.Output.Dir, runID, result.Stats, duration); err != nil {
		logger.WarnContext(ctx, "Failed to write run summary", "error", err)
	}

	logger.InfoContext(ctx, "factor report completed",
		"duration", duration,
		"factor_file", factorPath,
		"assignments_file", assignmentsPath,
		"periods", result.Stats.PeriodsProcessed,
	)
	return 0
}

// applyOverrides folds command-line flags into the loaded configuration.
func applyOverrides(cfg *config.Config, input, format, outputDir string, workers int, strict bool) {
	if input != "" {
		cfg.Input.Path = input
	}
	if format != "" {
		cfg.Input.Format = format
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if workers > 0 {
		cfg.Pipeline.Workers = workers
	}
	if strict {
		cfg.Pipeline.CompositePolicy = string(quality.CompositeStrict)
	}
}

// loadPanel dispatches to the loader for the configured input format.
func loadPanel(path, format string) ([]quality.MetricRecord, error) {
	switch format {
	case "xlsx":
		return panel.LoadWorkbook(path)
	case "csv", "":
		return panel.LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
}

// writeRunSummary appends one row of run statistics to the summary table.
func writeRunSummary(outputDir, runID string, stats quality.RunStats, duration time.Duration) error {
	writer := exporter.NewCSVWriter(outputDir)

	headers := []string{"run_id", "timestamp", "duration_ms", "periods_processed", "periods_skipped", "degenerate_groups", "entities_ranked", "entities_excluded"}
	row := []string{
		runID,
		time.Now().UTC().Format(time.RFC3339),
		strconv.FormatInt(duration.Milliseconds(), 10),
		strconv.Itoa(stats.PeriodsProcessed),
		strconv.Itoa(stats.PeriodsSkipped),
		strconv.Itoa(stats.DegenerateGroups),
		strconv.Itoa(stats.EntitiesRanked),
		strconv.Itoa(stats.EntitiesExcluded),
	}

	const summaryFile = "run_summary.csv"
	if _, err := os.Stat(filepath.Join(outputDir, summaryFile)); err == nil {
		return writer.AppendToCSV(summaryFile, [][]string{row})
	}
	return writer.WriteSimpleCSV(summaryFile, headers, [][]string{row})
}
