package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStartWatcher_ReportsPDFChanges(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, SkipHidden: true, Debounce: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("StartWatcher() error = %v", err)
	}

	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".tmp.pdf"), "ignored")
	pdf := filepath.Join(root, "new.pdf")
	writeFile(t, pdf, "%PDF-1.4")

	select {
	case batch := <-events:
		if len(batch) != 1 || batch[0] != pdf {
			t.Fatalf("batch = %v, want [%s]", batch, pdf)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the new pdf")
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after cancel")
		}
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}, nil); err == nil {
		t.Fatal("want error without roots")
	}
}

func TestStartWatcher_MissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatal("setup: path exists")
	}
	if _, _, err := StartWatcher(context.Background(), WatchConfig{Roots: []string{missing}}, nil); err == nil {
		t.Fatal("want error for a missing root")
	}
}
