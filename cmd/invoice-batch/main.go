package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

const defaultOutput = "data_label_invoices.csv"

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type options struct {
	dir        string
	out        string
	xlsx       string
	skipHidden bool
}

func main() {
	// Parse CLI flags
	var (
		dir        = flag.String("dir", "", "directory of invoice PDFs to process (required)")
		out        = flag.String("out", "", "output CSV path (defaults to "+defaultOutput+" next to --dir)")
		xlsx       = flag.String("xlsx", "", "also write the table as an XLSX workbook to this path")
		workers    = flag.Int("workers", 0, "documents processed concurrently (overrides WORKERS)")
		configPath = flag.String("config", "", "YAML config file (overrides INVOICE_CONFIG)")
		envFile    = flag.String("env", ".env", "dotenv file to load before reading the environment")
		watch      = flag.Bool("watch", false, "keep running and re-extract when PDFs in --dir change")
		debounce   = flag.Duration("debounce", 2*time.Second, "quiet period before a change triggers a run in --watch mode")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), defaultOutput)
	}

	// Setup logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := common.LoadDotEnv(*envFile); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger, pipeline.WithObserver(progressObserver()))
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Warn("close components", "error", err)
		}
	}()

	opts := options{dir: *dir, out: *out, xlsx: *xlsx, skipHidden: true}
	loader := ingest.NewLoader(logger)

	err = runOnce(ctx, components, loader, opts, logger)
	if !*watch {
		if err != nil {
			printError("Error: %v\n", err)
			components.Close()
			os.Exit(1)
		}
		return
	}
	if err != nil {
		printError("Warning: %v\n", err)
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:      []string{*dir},
		SkipHidden: opts.skipHidden,
		Debounce:   *debounce,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		components.Close()
		os.Exit(1)
	}
	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", *dir)
	for {
		select {
		case <-ctx.Done():
			return
		case changed, ok := <-events:
			if !ok {
				return
			}
			logger.Info("watch.changed", "paths", changed)
			if err := runOnce(ctx, components, loader, opts, logger); err != nil {
				printError("Warning: %v\n", err)
			}
		case err, ok := <-errs:
			if ok {
				logger.Warn("watch.error", "error", err)
			}
		}
	}
}

// runOnce loads the directory, extracts every document and writes the exports.
func runOnce(ctx context.Context, c *app.Components, loader *ingest.Loader, opts options, logger *slog.Logger) error {
	start := time.Now()
	docs, unreadable, stats, err := loader.LoadDirectory(opts.dir, opts.skipHidden)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.dir, err)
	}
	for _, f := range unreadable {
		printError("Warning: could not read %s: %v\n", f.Path, f.Err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no PDF files found in %s", opts.dir)
	}

	report, err := c.Runner.Run(ctx, docs)
	if err != nil {
		printSummary(report, stats, "")
		if errors.Is(err, common.ErrNoResults) {
			return fmt.Errorf("no data was extracted from the uploaded PDFs")
		}
		return err
	}

	if err := writeCSV(c, opts.out, report); err != nil {
		return err
	}
	if opts.xlsx != "" {
		b, err := c.Exporter.ExportXLSX(report.Records)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		if err := os.WriteFile(opts.xlsx, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.xlsx, err)
		}
	}

	logger.Info("batch processing complete",
		"documents", len(docs),
		"records", len(report.Records),
		"failed", len(report.Failed),
		"from_cache", report.FromCache,
		"output_file", opts.out,
		"elapsed_ms", time.Since(start).Milliseconds())
	printSummary(report, stats, opts.out)
	return nil
}

func writeCSV(c *app.Components, path string, report pipeline.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := c.Exporter.WriteCSV(f, report.Records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(report pipeline.Report, stats ingest.DirStats, out string) {
	fmt.Printf("Extraction complete!\n")
	fmt.Printf("- PDFs found: %d\n", stats.Loaded)
	fmt.Printf("- Records: %d\n", len(report.Records))
	if report.FromCache {
		fmt.Printf("- Served from cache (document set unchanged)\n")
	}
	if len(report.Failed) > 0 {
		fmt.Printf("- Failed after retries: %d\n", len(report.Failed))
		for _, name := range report.Failed {
			fmt.Printf("    %s\n", name)
		}
	}
	if out != "" {
		fmt.Printf("- Output: %s\n", out)
	}
}

// progressObserver prints per-document retry warnings and final failures.
func progressObserver() pipeline.ObserverFunc {
	return func(e pipeline.Event) {
		switch {
		case e.Kind == pipeline.EventAttemptFailed:
			printError("Error processing %s (attempt %d): %v\n", e.Document, e.Attempt, e.Err)
		case e.Kind == pipeline.EventRetryScheduled:
			printError("Retrying %s in %s...\n", e.Document, e.Delay)
		case e.Kind == pipeline.EventTransition && e.State == constants.StateFailed:
			printError("Failed to process %s after %d attempts\n", e.Document, e.Attempt)
		}
	}
}
