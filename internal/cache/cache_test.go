package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func TestKey(t *testing.T) {
	a := entity.Document{Name: "a.pdf", Data: []byte("one")}
	b := entity.Document{Name: "b.pdf", Data: []byte("two")}
	base := Key([]entity.Document{a, b})

	if base != Key([]entity.Document{a, b}) {
		t.Fatal("Key is not deterministic")
	}
	tests := []struct {
		name string
		docs []entity.Document
	}{
		{"reordered", []entity.Document{b, a}},
		{"renamed", []entity.Document{{Name: "c.pdf", Data: a.Data}, b}},
		{"edited", []entity.Document{{Name: a.Name, Data: []byte("ONE")}, b}},
		{"removed", []entity.Document{a}},
		{"name and data shifted", []entity.Document{{Name: "a.pdfo", Data: []byte("ne")}, b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Key(tt.docs) == base {
				t.Errorf("Key(%s) collides with the original set", tt.name)
			}
		})
	}
}

func sampleRecords() []entity.FieldRecord {
	return []entity.FieldRecord{
		{Fields: map[string]string{"INVOICE_NUMBER": "INV-1", "TOTAL": "12.50"}, PDFFile: "a.pdf"},
		{Fields: map[string]string{"TRACKING_NUMBER": "No Tracking Number Found"}, PDFFile: "b.pdf"},
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	recs := sampleRecords()
	if err := s.Put(ctx, "k", recs); err != nil {
		t.Fatal(err)
	}
	recs[0].Fields["TOTAL"] = "changed"

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() ok=%v err=%v", ok, err)
	}
	if got[0].Fields["TOTAL"] != "12.50" {
		t.Errorf("stored records were mutated through the caller's slice")
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	fileStore, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "cache.db"), nil)
	if err != nil {
		t.Fatalf("OpenSQLite(file) error = %v", err)
	}
	t.Cleanup(func() { fileStore.Close() })
	memStore, err := OpenSQLite(ctx, "", nil)
	if err != nil {
		t.Fatalf("OpenSQLite(memory) error = %v", err)
	}
	t.Cleanup(func() { memStore.Close() })

	stores := map[string]Store{
		"memory":        NewMemoryStore(),
		"sqlite memory": memStore,
		"sqlite file":   fileStore,
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
				t.Fatalf("Get(missing) ok=%v err=%v", ok, err)
			}
			if err := s.Put(ctx, "k", sampleRecords()[:1]); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := s.Put(ctx, "k", sampleRecords()); err != nil {
				t.Fatalf("Put() overwrite error = %v", err)
			}
			got, ok, err := s.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("Get() ok=%v err=%v", ok, err)
			}
			if diff := cmp.Diff(sampleRecords(), got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
			if err := s.Invalidate(ctx, "k"); err != nil {
				t.Fatalf("Invalidate() error = %v", err)
			}
			if _, ok, _ := s.Get(ctx, "k"); ok {
				t.Error("entry still present after Invalidate")
			}
			if err := s.Invalidate(ctx, "k"); err != nil {
				t.Errorf("Invalidate() of a missing key error = %v", err)
			}
		})
	}
}
