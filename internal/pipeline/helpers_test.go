package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/testutil"
)

// fakeRasterizer writes a real page image per call so cleanup can be checked on disk.
type fakeRasterizer struct {
	mu    sync.Mutex
	calls map[string]int
	fail  func(doc string, call int) error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, doc entity.Document, outDir string) (entity.RasterImage, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[doc.Name]++
	n := f.calls[doc.Name]
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(doc.Name, n); err != nil {
			return entity.RasterImage{}, err
		}
	}
	path := filepath.Join(outDir, fmt.Sprintf("%s-%d.png", strings.TrimSuffix(doc.Name, ".pdf"), n))
	if err := os.WriteFile(path, testutil.PNGBytes, 0o600); err != nil {
		return entity.RasterImage{}, err
	}
	return entity.RasterImage{Path: path, MIMEType: "image/png"}, nil
}

func (f *fakeRasterizer) callsFor(doc string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[doc]
}

// fakeClient answers with respond; call counts are kept per document.
type fakeClient struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(ctx context.Context, doc string, call int) (string, error)
}

func (f *fakeClient) Complete(ctx context.Context, req entity.ExtractionRequest) (string, error) {
	if !strings.HasPrefix(req.Image.DataURL, "data:image/png;base64,") {
		return "", fmt.Errorf("unexpected image %q", req.Image.DataURL)
	}
	doc := common.DocumentFromContext(ctx)
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[doc]++
	n := f.calls[doc]
	f.mu.Unlock()
	return f.respond(ctx, doc, n)
}

func (f *fakeClient) callsFor(doc string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[doc]
}

// recorder collects events from any goroutine.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(kind EventKind, doc string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind && e.Document == doc {
			n++
		}
	}
	return n
}

func invoiceResponse(number string) string {
	return "Here is the extracted data:\n```json\n" +
		`{"Invoice Number": "` + number + `", "TOTAL:": 12.50, "Notes": "handwritten", "TRACKING_NUMBER": "model guess"}` +
		"\n```\nFull text: SHIP VIA UPS 1Z999AA10123456784 THANK YOU"
}

func docs(names ...string) []entity.Document {
	out := make([]entity.Document, len(names))
	for i, n := range names {
		out[i] = entity.Document{Name: n, Data: []byte("%PDF-" + n)}
	}
	return out
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("leaked files in work dir: %v", names)
	}
}
