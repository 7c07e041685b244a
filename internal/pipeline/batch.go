package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"golang.org/x/sync/errgroup"
)

// Report is the result of a batch run. Records and Failed follow input order.
type Report struct {
	Records   []entity.FieldRecord
	Failed    []string
	Outcomes  []Outcome
	FromCache bool
}

// Runner runs a batch of documents.
type Runner interface {
	Run(ctx context.Context, docs []entity.Document) (Report, error)
}

// Batch processes a document set through a Pipeline.
type Batch struct {
	pipeline *Pipeline
	workers  int
	logger   *slog.Logger
}

// NewBatch creates a Batch. workers below 1 means sequential processing.
func NewBatch(p *Pipeline, workers int, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Batch{pipeline: p, workers: workers, logger: logger}
}

// Run processes every document. A document that exhausts its retries is listed in
// Report.Failed and never stops the others. It returns common.ErrNoResults when no
// document succeeded, or the context error when ctx ended first.
func (b *Batch) Run(ctx context.Context, docs []entity.Document) (Report, error) {
	start := time.Now()
	b.logger.Info("batch.start", "documents", len(docs), "workers", b.workers)

	outcomes := make([]Outcome, len(docs))
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, doc := range docs {
		g.Go(func() error {
			outcomes[i] = b.pipeline.Process(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.State == constants.StateSucceeded && o.Record != nil {
			rep.Records = append(rep.Records, *o.Record)
			continue
		}
		rep.Failed = append(rep.Failed, o.Document)
	}

	b.logger.Info("batch.done",
		"succeeded", len(rep.Records),
		"failed", len(rep.Failed),
		"elapsed_ms", time.Since(start).Milliseconds())

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if len(rep.Records) == 0 {
		return rep, common.ErrNoResults
	}
	return rep, nil
}
