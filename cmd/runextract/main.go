package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <invoice.pdf>")
		os.Exit(2)
	}

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := common.LoadConfig("")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	cfg.Cache.Enabled = false
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	docs, err := ingest.NewLoader(logger).LoadFiles(os.Args[1:])
	if err != nil {
		logger.Error("load document", "path", os.Args[1], "error", err)
		os.Exit(1)
	}

	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	start := time.Now()
	out := c.Pipeline.Process(ctx, docs[0])
	dur := time.Since(start)

	if out.State != constants.StateSucceeded {
		logger.Error("extraction failed",
			"document", out.Document,
			"attempts", out.Attempts,
			"kind", common.ErrorKind(out.Err),
			"error", out.Err,
			"duration_ms", dur.Milliseconds())
		c.Close()
		os.Exit(1)
	}

	logger.Info("extraction OK",
		"document", out.Document,
		"attempts", out.Attempts,
		"duration_ms", dur.Milliseconds())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	row := make(map[string]string, len(constants.ExportColumns()))
	for _, col := range constants.ExportColumns() {
		if v, ok := out.Record.Value(col); ok {
			row[col] = v
		}
	}
	if err := enc.Encode(row); err != nil {
		logger.Error("encode record", "error", err)
		os.Exit(1)
	}
}
