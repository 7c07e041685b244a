package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Rasterizer renders page one of a document into outDir.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc entity.Document, outDir string) (entity.RasterImage, error)
}

// Outcome is the terminal result of one document.
type Outcome struct {
	Document string
	State    constants.AttemptState
	Attempts int
	Record   *entity.FieldRecord
	Err      error
}

// Pipeline runs the per-document extraction with bounded retry.
type Pipeline struct {
	rasterizer     Rasterizer
	client         llm.Client
	parser         llm.ResponseParser
	policy         Policy
	workDir        string
	attemptTimeout time.Duration
	observers      []Observer
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParser replaces the default greedy parser.
func WithParser(p llm.ResponseParser) Option {
	return func(pl *Pipeline) { pl.parser = p }
}

// WithPolicy sets the retry policy.
func WithPolicy(p Policy) Option {
	return func(pl *Pipeline) { pl.policy = p }
}

// WithWorkDir sets where page images are written. Empty means a fresh temp dir per document.
func WithWorkDir(dir string) Option {
	return func(pl *Pipeline) { pl.workDir = dir }
}

// WithAttemptTimeout bounds a single attempt. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(pl *Pipeline) { pl.attemptTimeout = d }
}

// WithObserver adds an observer of pipeline events.
func WithObserver(o Observer) Option {
	return func(pl *Pipeline) { pl.observers = append(pl.observers, o) }
}

// New creates a Pipeline.
func New(rasterizer Rasterizer, client llm.Client, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		rasterizer:     rasterizer,
		client:         client,
		parser:         llm.GreedyParser{},
		policy:         DefaultPolicy(),
		attemptTimeout: 2 * time.Minute,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.policy = p.policy.normalized()
	p.observers = append([]Observer{logObserver{logger: logger}}, p.observers...)
	return p
}

func (p *Pipeline) emit(e Event) {
	for _, o := range p.observers {
		o.Observe(e)
	}
}

func (p *Pipeline) transition(doc string, attempt int, state constants.AttemptState) {
	p.emit(Event{Kind: EventTransition, Document: doc, Attempt: attempt, State: state})
}

// Process runs attempts until one succeeds, the policy is exhausted or ctx is done.
// Whatever happens, no page image of this document is left on disk.
func (p *Pipeline) Process(ctx context.Context, doc entity.Document) Outcome {
	out := Outcome{Document: doc.Name, State: constants.StatePending}

	workDir := p.workDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "invoice-raster-*")
		if err != nil {
			out.State = constants.StateFailed
			out.Err = fmt.Errorf("create work dir: %w", err)
			p.emit(Event{Kind: EventTransition, Document: doc.Name, State: out.State, Err: out.Err})
			return out
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	bo := p.policy.NewBackOff()
	start := time.Now()
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if out.Err == nil {
				out.Err = err
			}
			break
		}
		out.Attempts = attempt

		rec, err := p.attempt(ctx, doc, workDir, attempt)
		if err == nil {
			out.State = constants.StateSucceeded
			out.Record = &rec
			out.Err = nil
			p.transition(doc.Name, attempt, out.State)
			p.logger.Debug("pipeline.document.done", "document", doc.Name, "elapsed_ms", time.Since(start).Milliseconds())
			return out
		}
		out.Err = err
		p.emit(Event{Kind: EventAttemptFailed, Document: doc.Name, Attempt: attempt, Err: err})

		if attempt == p.policy.MaxAttempts || ctx.Err() != nil {
			break
		}
		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		p.emit(Event{Kind: EventRetryScheduled, Document: doc.Name, Attempt: attempt, Delay: delay})
		if err := sleep(ctx, delay); err != nil {
			break
		}
	}

	out.State = constants.StateFailed
	p.emit(Event{Kind: EventTransition, Document: doc.Name, Attempt: out.Attempts, State: out.State, Err: out.Err})
	return out
}

// attempt is one full pass: rasterize, encode, request, parse, normalize.
func (p *Pipeline) attempt(ctx context.Context, doc entity.Document, workDir string, n int) (entity.FieldRecord, error) {
	ctx = common.WithRequestID(common.WithDocument(ctx, doc.Name), uuid.New().String())
	if p.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.attemptTimeout)
		defer cancel()
	}

	p.transition(doc.Name, n, constants.StateRasterizing)
	img, err := p.rasterizer.Rasterize(ctx, doc, workDir)
	if err != nil {
		return entity.FieldRecord{}, err
	}
	enc, err := llm.EncodeImage(img)
	p.removeImage(doc.Name, n, img)
	if err != nil {
		return entity.FieldRecord{}, &common.RasterizationError{Document: doc.Name, Reason: "read page image", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return entity.FieldRecord{}, err
	}

	p.transition(doc.Name, n, constants.StateRequesting)
	raw, err := p.client.Complete(ctx, llm.BuildRequest(enc))
	if err != nil {
		return entity.FieldRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return entity.FieldRecord{}, err
	}

	p.transition(doc.Name, n, constants.StateParsing)
	fields, err := p.parser.Parse(raw)
	if err != nil {
		return entity.FieldRecord{}, err
	}
	values, _ := llm.CanonicalValues(llm.NormalizeFields(fields), p.logger.With("document", doc.Name))
	values[constants.FieldTrackingNumber] = llm.ExtractTrackingNumber(raw)

	return entity.FieldRecord{Fields: values, PDFFile: doc.Name}, nil
}

func (p *Pipeline) removeImage(doc string, attempt int, img entity.RasterImage) {
	if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("pipeline.image.remove_failed", "document", doc, "path", img.Path, "error", err)
		return
	}
	p.emit(Event{Kind: EventImageRemoved, Document: doc, Attempt: attempt})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
