package repository

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/iliyamo/resort-reservation/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecords() []model.Reservation {
	return []model.Reservation{
		{
			ID:        1,
			ResortID:  1,
			GuestName: "A",
			Contact:   model.Contact{Phone: "09171234567", Email: "a@x.com"},
			ValidID:   model.ValidID{Type: "Passport", Number: "P1234567"},
			Guests:    2,
			SMSToken:  "BK-AB12C",
			CreatedAt: "2025-01-01T00:00:00.000000Z",
			UpdatedAt: "2025-01-01T00:00:00.000000Z",
		},
		{
			ID:        4,
			ResortID:  2,
			GuestName: "B",
			Contact:   model.Contact{Phone: "09170000000"},
			ValidID:   model.ValidID{Type: "UMID", Number: "12345"},
			Guests:    1,
			SMSToken:  "BK-ZZ999",
			CreatedAt: "2025-01-02T00:00:00.000000Z",
			UpdatedAt: "2025-01-03T00:00:00.000000Z",
		},
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "reservations.json"), discardLogger())
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load = %#v, want empty collection", got)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	for name, content := range map[string]string{"garbage": "{not json", "empty": "", "object": `{"id":1}`} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reservations.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := NewFileStore(path, discardLogger()).Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("Load = %#v, want empty collection", got)
			}
		})
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reservations.json")
	s := NewFileStore(path, discardLogger())
	ctx := context.Background()

	want := sampleRecords()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	if err := s.Save(ctx, want[:1]); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, _ = s.Load(ctx)
	if len(got) != 1 {
		t.Errorf("collection not replaced: %d records", len(got))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestFileStore_SaveIntoMissingDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing", "reservations.json"), discardLogger())
	if err := s.Save(context.Background(), sampleRecords()); err == nil {
		t.Fatal("Save into a missing directory succeeded")
	}
}
