// Package gemini implements llm.Client on top of the Gemini generative API.
package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

const provider = "gemini"

type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string // default gemini-1.5-flash
	MaxTokens   int32  // default 1000
	Temperature float32
}

// generator is the slice of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Client struct {
	cfg    Config
	gen    generator
	closer io.Closer
	log    *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	m := cl.GenerativeModel(strings.TrimSpace(cfg.Model))
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     &cfg.Temperature,
		MaxOutputTokens: &cfg.MaxTokens,
	}
	c := newClient(cfg, m, logger)
	c.closer = cl
	return c, nil
}

func newClient(cfg Config, gen generator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, gen: gen, log: logger}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Complete implements llm.Client. The data URL is decoded back to bytes because the
// Gemini API takes inline blobs rather than URLs.
func (c *Client) Complete(ctx context.Context, req entity.ExtractionRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	img, mt, err := llm.DecodeDataURL(req.Image.DataURL)
	if err != nil {
		return "", &common.InferenceError{Provider: provider, Reason: "bad image payload", Err: err}
	}
	if req.Image.MIMEType != "" {
		mt = req.Image.MIMEType
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", provider,
		"model", c.cfg.Model,
		"document", common.DocumentFromContext(ctx),
		"image_bytes", len(img),
	)

	resp, err := c.gen.GenerateContent(ctx,
		genai.Text(req.Instruction),
		genai.Blob{MIMEType: mt, Data: img},
	)
	if err != nil {
		c.log.Error("llm.extract.generate_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.InferenceError{Provider: provider, Reason: "generate content", Err: err}
	}

	txt := strings.TrimSpace(allText(resp))
	if txt == "" {
		c.log.Error("llm.extract.empty_response",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.InferenceError{Provider: provider, Reason: "empty response"}
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"content_len", len(txt),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return txt, nil
}

// allText joins the text parts of the first candidate that has any.
func allText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
