package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/joseph-ayodele/invoice-extractor/internal/cache"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func pdfNames(recs []entity.FieldRecord) []string {
	var names []string
	for _, r := range recs {
		names = append(names, r.PDFFile)
	}
	return names
}

func TestBatch_OneDocumentExhaustsRetries(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{respond: func(_ context.Context, doc string, _ int) (string, error) {
		if doc == "doc2.pdf" {
			return "", &common.InferenceError{Provider: "fake", StatusCode: 503, Reason: "unexpected status"}
		}
		return invoiceResponse(doc), nil
	}}
	p := New(&fakeRasterizer{}, client, nil, WithPolicy(ImmediatePolicy(3)), WithWorkDir(dir))

	rep, err := NewBatch(p, 1, nil).Run(context.Background(), docs("doc1.pdf", "doc2.pdf", "doc3.pdf"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff([]string{"doc1.pdf", "doc3.pdf"}, pdfNames(rep.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"doc2.pdf"}, rep.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if got := client.callsFor("doc2.pdf"); got != 3 {
		t.Errorf("doc2 attempts = %d, want 3", got)
	}
	if len(rep.Outcomes) != 3 || rep.Outcomes[1].Attempts != 3 {
		t.Errorf("outcomes = %+v", rep.Outcomes)
	}
	assertEmptyDir(t, dir)
}

func TestBatch_NoResults(t *testing.T) {
	client := &fakeClient{respond: func(context.Context, string, int) (string, error) {
		return "no json here", nil
	}}
	p := New(&fakeRasterizer{}, client, nil, WithPolicy(ImmediatePolicy(2)))

	rep, err := NewBatch(p, 1, nil).Run(context.Background(), docs("a.pdf", "b.pdf"))

	if !errors.Is(err, common.ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	if diff := cmp.Diff([]string{"a.pdf", "b.pdf"}, rep.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(rep.Records) != 0 {
		t.Errorf("records = %v, want none", rep.Records)
	}
}

func TestBatch_EmptyInput(t *testing.T) {
	p := New(&fakeRasterizer{}, &fakeClient{}, nil)
	_, err := NewBatch(p, 1, nil).Run(context.Background(), nil)
	if !errors.Is(err, common.ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestBatch_ParallelKeepsInputOrder(t *testing.T) {
	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}
	wait := map[string]time.Duration{
		"a.pdf": 40 * time.Millisecond,
		"b.pdf": 30 * time.Millisecond,
		"c.pdf": 20 * time.Millisecond,
		"d.pdf": 0,
	}
	client := &fakeClient{respond: func(_ context.Context, doc string, _ int) (string, error) {
		time.Sleep(wait[doc])
		return invoiceResponse(doc), nil
	}}
	p := New(&fakeRasterizer{}, client, nil, WithPolicy(ImmediatePolicy(1)))

	rep, err := NewBatch(p, 4, nil).Run(context.Background(), docs(names...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff(names, pdfNames(rep.Records)); diff != "" {
		t.Errorf("records out of input order (-want +got):\n%s", diff)
	}
}

func TestBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(&fakeRasterizer{}, &fakeClient{}, nil)

	rep, err := NewBatch(p, 2, nil).Run(ctx, docs("a.pdf", "b.pdf"))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(rep.Failed) != 2 {
		t.Errorf("failed = %v, want both documents", rep.Failed)
	}
}

// countingRunner counts batch runs and fails the listed documents.
type countingRunner struct {
	runs int
	fail map[string]bool
}

func (c *countingRunner) Run(_ context.Context, in []entity.Document) (Report, error) {
	c.runs++
	var rep Report
	for _, d := range in {
		if c.fail[d.Name] {
			rep.Failed = append(rep.Failed, d.Name)
			continue
		}
		rep.Records = append(rep.Records, entity.FieldRecord{Fields: map[string]string{"TOTAL": "1"}, PDFFile: d.Name})
	}
	if len(rep.Records) == 0 {
		return rep, common.ErrNoResults
	}
	return rep, nil
}

func TestCachedRunner(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	inner := &countingRunner{}
	r := NewCachedRunner(inner, store, nil)

	set1 := docs("a.pdf", "b.pdf")
	first, err := r.Run(ctx, set1)
	if err != nil || first.FromCache {
		t.Fatalf("first run: fromCache=%v err=%v", first.FromCache, err)
	}
	second, err := r.Run(ctx, set1)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.FromCache || inner.runs != 1 {
		t.Fatalf("second run: fromCache=%v runs=%d, want cache hit", second.FromCache, inner.runs)
	}
	if diff := cmp.Diff(first.Records, second.Records); diff != "" {
		t.Errorf("cached records mismatch (-want +got):\n%s", diff)
	}

	set2 := docs("a.pdf", "c.pdf")
	if _, err := r.Run(ctx, set2); err != nil {
		t.Fatalf("changed set: %v", err)
	}
	if inner.runs != 2 {
		t.Errorf("runs = %d, want a fresh run for a changed set", inner.runs)
	}
	if _, ok, _ := store.Get(ctx, cache.Key(set1)); ok {
		t.Error("previous set still cached after the set changed")
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d sets, want 1", store.Len())
	}
}

func TestCachedRunner_PartialResultsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingRunner{fail: map[string]bool{"b.pdf": true}}
	r := NewCachedRunner(inner, cache.NewMemoryStore(), nil)

	set := docs("a.pdf", "b.pdf")
	for i := 0; i < 2; i++ {
		rep, err := r.Run(ctx, set)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if rep.FromCache {
			t.Fatalf("run %d served from cache with failed documents", i)
		}
	}
	if inner.runs != 2 {
		t.Errorf("runs = %d, want 2", inner.runs)
	}
}
