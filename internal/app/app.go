// Package app wires configuration into the extraction components shared by the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/invoice-extractor/internal/cache"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/raster"
)

// Components holds the wired services. Close releases them.
type Components struct {
	Pipeline *pipeline.Pipeline
	Runner   pipeline.Runner
	Exporter *export.Service

	closers []func() error
}

// Close releases clients and stores in reverse order of creation.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Build creates every component from cfg. Extra pipeline options (observers) are
// applied after the configured ones.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...pipeline.Option) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Components{Exporter: export.NewService(logger)}

	client, closeClient, err := NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeClient)

	parser, err := NewParser(cfg.Pipeline)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	if cfg.Raster.WorkDir != "" {
		if err := os.MkdirAll(cfg.Raster.WorkDir, 0o755); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("raster work dir: %w", err)
		}
	}
	rasterizer := raster.NewRasterizer(raster.Config{
		Pdftoppm: cfg.Raster.Pdftoppm,
		DPI:      cfg.Raster.DPI,
	}, logger)

	pipeOpts := []pipeline.Option{
		pipeline.WithParser(parser),
		pipeline.WithPolicy(pipeline.FixedPolicy(cfg.Pipeline.MaxRetries, cfg.Pipeline.RetryDelay)),
		pipeline.WithAttemptTimeout(cfg.Pipeline.AttemptTimeout),
		pipeline.WithWorkDir(cfg.Raster.WorkDir),
	}
	c.Pipeline = pipeline.New(rasterizer, client, logger, append(pipeOpts, opts...)...)

	var runner pipeline.Runner = pipeline.NewBatch(c.Pipeline, cfg.Pipeline.Workers, logger)
	if cfg.Cache.Enabled {
		store, err := cache.OpenSQLite(ctx, cfg.Cache.DSN, logger)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.closers = append(c.closers, store.Close)
		runner = pipeline.NewCachedRunner(runner, store, logger)
	}
	c.Runner = runner

	logger.Info("app.components.ready",
		"provider", cfg.LLM.Provider,
		"workers", cfg.Pipeline.Workers,
		"max_retries", cfg.Pipeline.MaxRetries,
		"cache", cfg.Cache.Enabled,
		"schema_validation", cfg.Pipeline.ValidateSchema)
	return c, nil
}

// NewClient returns the inference client for the configured provider and its closer.
func NewClient(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Client, func() error, error) {
	switch cfg.Provider {
	case common.ProviderOpenAI:
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		return c, func() error { return nil }, nil
	case common.ProviderGemini:
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM_PROVIDER %q", cfg.Provider), common.ErrInvalidInput)
	}
}

// NewParser returns the greedy parser, wrapped with schema validation when enabled.
func NewParser(cfg common.PipelineConfig) (llm.ResponseParser, error) {
	var p llm.ResponseParser = llm.GreedyParser{}
	if !cfg.ValidateSchema {
		return p, nil
	}
	sp, err := llm.NewSchemaParser(p, llm.BuildInvoiceJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("invoice schema: %w", err)
	}
	return sp, nil
}
