package raster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/testutil"
)

// stubRunner emulates pdftoppm -singlefile by writing <prefix>.png.
type stubRunner struct {
	calls   [][]string
	fail    bool
	noImage bool
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.fail {
		return nil, []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}
	if s.noImage {
		return nil, nil, nil
	}
	prefix := args[len(args)-1]
	return nil, nil, os.WriteFile(prefix+".png", testutil.PNGBytes, 0o600)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRasterize_ProducesExactlyOneImage(t *testing.T) {
	for _, pages := range []int{1, 3} {
		dir := t.TempDir()
		runner := &stubRunner{}
		r := NewRasterizerWithRunner(Config{}, runner, nil)

		img, err := r.Rasterize(context.Background(), entity.Document{Name: "a.pdf", Data: testutil.MinimalPDF(pages)}, dir)
		if err != nil {
			t.Fatalf("pages=%d: Rasterize() error = %v", pages, err)
		}
		if len(runner.calls) != 1 {
			t.Fatalf("pages=%d: runner called %d times, want 1", pages, len(runner.calls))
		}
		args := runner.calls[0]
		if args[0] != "pdftoppm" || !slices.Contains(args, "-singlefile") {
			t.Errorf("unexpected command line %v", args)
		}
		if i := slices.Index(args, "-l"); i < 0 || args[i+1] != "1" {
			t.Errorf("command line %v does not stop at page 1", args)
		}
		if filepath.Dir(img.Path) != dir || img.MIMEType != "image/png" {
			t.Errorf("image = %+v, want png in %s", img, dir)
		}
		if got := listDir(t, dir); len(got) != 1 || got[0] != filepath.Base(img.Path) {
			t.Errorf("dir contents = %v, want only %s", got, filepath.Base(img.Path))
		}
	}
}

func TestRasterize_Failures(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		runner     *stubRunner
		wantCalled bool
	}{
		{name: "not a pdf", data: []byte("hello, not a pdf"), runner: &stubRunner{}},
		{name: "empty", data: nil, runner: &stubRunner{}},
		{name: "zero pages", data: testutil.MinimalPDF(0), runner: &stubRunner{}},
		{name: "pdftoppm fails", data: testutil.MinimalPDF(1), runner: &stubRunner{fail: true}, wantCalled: true},
		{name: "no output image", data: testutil.MinimalPDF(1), runner: &stubRunner{noImage: true}, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			r := NewRasterizerWithRunner(Config{DPI: 150}, tt.runner, nil)
			_, err := r.Rasterize(context.Background(), entity.Document{Name: "bad.pdf", Data: tt.data}, dir)

			var rerr *common.RasterizationError
			if !errors.As(err, &rerr) {
				t.Fatalf("error = %v, want *RasterizationError", err)
			}
			if !errors.Is(err, common.ErrRasterization) {
				t.Errorf("errors.Is(err, ErrRasterization) = false")
			}
			if rerr.Document != "bad.pdf" {
				t.Errorf("Document = %q", rerr.Document)
			}
			if called := len(tt.runner.calls) > 0; called != tt.wantCalled {
				t.Errorf("runner called = %v, want %v", called, tt.wantCalled)
			}
			if left := listDir(t, dir); len(left) != 0 {
				t.Errorf("leftover files: %v", left)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(testutil.MinimalPDF(2))
	if err != nil || n != 2 {
		t.Fatalf("PageCount() = %d, %v; want 2, nil", n, err)
	}
}
