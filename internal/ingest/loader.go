package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Loaded  uint32
	Failed  uint32
}

// FileError is a file that matched but could not be read.
type FileError struct {
	Path string
	Err  error
}

// Loader reads invoice PDFs from the local filesystem.
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadFiles reads each path as a document named by its base name, sorted by name.
// Any unreadable or non-PDF path fails the whole call.
func (l *Loader) LoadFiles(paths []string) ([]entity.Document, error) {
	docs := make([]entity.Document, 0, len(paths))
	for _, p := range paths {
		if !AllowedExt(filepath.Ext(p)) {
			return nil, fmt.Errorf("%s: unsupported or missing extension", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, entity.Document{Name: filepath.Base(p), Data: data})
	}
	sortDocuments(docs)
	l.logger.Info("ingest.files.loaded", "count", len(docs))
	return docs, nil
}

// LoadDirectory walks root, skips hidden entries if requested and reads every PDF.
// Documents are named by their path relative to root and sorted by name. Files that
// cannot be read are reported in the returned FileErrors and counted as failed.
func (l *Loader) LoadDirectory(root string, skipHidden bool) ([]entity.Document, []FileError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root_path is required")
	}

	var docs []entity.Document
	var failed []FileError
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Scanned++
			failed = append(failed, FileError{Path: path, Err: walkErr})
			stats.Failed++
			return nil
		}
		if path == root {
			return nil
		}
		stats.Scanned++
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("ingest.file.read_failed", "path", path, "error", err)
			failed = append(failed, FileError{Path: path, Err: err})
			stats.Failed++
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		docs = append(docs, entity.Document{Name: filepath.ToSlash(rel), Data: data})
		stats.Loaded++
		return nil
	})
	if err != nil {
		return nil, failed, stats, fmt.Errorf("walk: %w", err)
	}

	sortDocuments(docs)
	l.logger.Info("ingest.dir.loaded",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"loaded", stats.Loaded,
		"failed", stats.Failed)
	return docs, failed, stats, nil
}

func sortDocuments(docs []entity.Document) {
	slices.SortStableFunc(docs, func(a, b entity.Document) int {
		return strings.Compare(a.Name, b.Name)
	})
}
