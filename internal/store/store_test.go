package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "validations.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestSaveAndLoadValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mtime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := Validation{
		Path:    "/photos/a.jpg",
		ModTime: mtime,
		Size:    2048,
		IsValid: true,
	}
	if err := s.SaveValidation(ctx, v); err != nil {
		t.Fatalf("SaveValidation: %v", err)
	}

	loaded, err := s.LoadValidations(ctx, 0)
	if err != nil {
		t.Fatalf("LoadValidations: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d validations, want 1", len(loaded))
	}
	got := loaded[0]
	if got.Path != v.Path || !got.ModTime.Equal(mtime) || got.Size != 2048 || !got.IsValid {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.CheckedAt.IsZero() {
		t.Error("CheckedAt should be populated on save")
	}
}

func TestSaveValidationReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mtime := time.Now()
	if err := s.SaveValidation(ctx, Validation{Path: "/photos/a.jpg", ModTime: mtime, IsValid: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveValidation(ctx, Validation{Path: "/photos/a.jpg", ModTime: mtime, IsValid: false}); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadValidations(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d validations, want 1 after replace", len(loaded))
	}
	if loaded[0].IsValid {
		t.Error("replacement verdict should be false")
	}
}

func TestSaveValidationsBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mtime := time.Now()
	batch := []Validation{
		{Path: "/photos/a.jpg", ModTime: mtime, IsValid: true},
		{Path: "/photos/b.jpg", ModTime: mtime, IsValid: false},
		{Path: "/photos/c.jpg", ModTime: mtime, IsValid: true},
	}
	if err := s.SaveValidations(ctx, batch); err != nil {
		t.Fatalf("SaveValidations: %v", err)
	}
	if err := s.SaveValidations(ctx, nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestLoadValidationsMaxAge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := Validation{
		Path:      "/photos/old.jpg",
		ModTime:   time.Now(),
		IsValid:   true,
		CheckedAt: time.Now().Add(-48 * time.Hour),
	}
	fresh := Validation{
		Path:    "/photos/fresh.jpg",
		ModTime: time.Now(),
		IsValid: true,
	}
	if err := s.SaveValidations(ctx, []Validation{old, fresh}); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadValidations(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Path != "/photos/fresh.jpg" {
		t.Errorf("loaded %v, want only the fresh validation", loaded)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveValidations(ctx, []Validation{
		{Path: "/photos/stale.jpg", ModTime: time.Now(), IsValid: true, CheckedAt: time.Now().Add(-48 * time.Hour)},
		{Path: "/photos/live.jpg", ModTime: time.Now(), IsValid: true},
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count = %d after prune, want 1", n)
	}
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing-dir", "sub", "validations.db"))
	if err == nil {
		t.Error("expected error opening store under a nonexistent directory")
	}
}
