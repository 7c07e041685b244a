// Package raster renders the first page of an invoice PDF to a PNG image.
package raster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // default 200
}

// Rasterizer turns page 1 of a Document into exactly one RasterImage.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return NewRasterizerWithRunner(cfg, execRunner{logger: logger}, logger)
}

// NewRasterizerWithRunner is NewRasterizer with an injected command runner.
func NewRasterizerWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

// Rasterize renders page 1 of doc into outDir. The returned image file belongs to the
// caller, who must remove it. On error nothing is left behind in outDir.
func (r *Rasterizer) Rasterize(ctx context.Context, doc entity.Document, outDir string) (entity.RasterImage, error) {
	start := time.Now()

	pages, err := PageCount(doc.Data)
	if err != nil {
		return entity.RasterImage{}, &common.RasterizationError{Document: doc.Name, Reason: "not a valid pdf", Err: err}
	}
	if pages == 0 {
		return entity.RasterImage{}, &common.RasterizationError{Document: doc.Name, Reason: "document has no pages"}
	}

	in, err := os.CreateTemp(outDir, "invoice-*.pdf")
	if err != nil {
		return entity.RasterImage{}, &common.RasterizationError{Document: doc.Name, Reason: "create temp pdf", Err: err}
	}
	inPath := in.Name()
	defer func() {
		if err := os.Remove(inPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("raster.temp_pdf_remove_failed", "path", inPath, "error", err)
		}
	}()
	_, werr := in.Write(doc.Data)
	cerr := in.Close()
	if werr != nil || cerr != nil {
		return entity.RasterImage{}, &common.RasterizationError{Document: doc.Name, Reason: "write temp pdf", Err: errors.Join(werr, cerr)}
	}

	// pdftoppm -f 1 -l 1 -r 200 -png -singlefile <in.pdf> <prefix>  => <prefix>.png
	prefix := strings.TrimSuffix(inPath, filepath.Ext(inPath)) + "-page1"
	outPath := prefix + "." + constants.RasterFormat
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-f", "1", "-l", "1",
		"-r", fmt.Sprintf("%d", r.cfg.DPI),
		"-png", "-singlefile",
		inPath, prefix,
	)
	if err != nil {
		_ = os.Remove(outPath)
		reason := "pdftoppm failed"
		if s := strings.TrimSpace(string(errb)); s != "" {
			reason += ": " + truncate(s, 512)
		}
		return entity.RasterImage{}, &common.RasterizationError{Document: doc.Name, Reason: reason, Err: err}
	}
	if st, statErr := os.Stat(outPath); statErr != nil || st.Size() == 0 {
		_ = os.Remove(outPath)
		return entity.RasterImage{}, &common.RasterizationError{Document: doc.Name, Reason: "pdftoppm produced no image", Err: statErr}
	}

	r.logger.Debug("raster.page_rendered",
		"document", doc.Name,
		"pages", pages,
		"dpi", r.cfg.DPI,
		"path", outPath,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.RasterImage{Path: outPath, MIMEType: "image/png"}, nil
}
