package discovery

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// fakeValidator marks files valid unless listed, and counts calls so
// tests can assert the cache short-circuits.
type fakeValidator struct {
	mu      sync.Mutex
	calls   map[string]int
	invalid map[string]bool
}

func newFakeValidator(invalidNames ...string) *fakeValidator {
	invalid := make(map[string]bool, len(invalidNames))
	for _, name := range invalidNames {
		invalid[name] = true
	}
	return &fakeValidator{calls: make(map[string]int), invalid: invalid}
}

func (f *fakeValidator) Validate(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[filepath.Base(path)]++
	return !f.invalid[filepath.Base(path)]
}

func (f *fakeValidator) Load(string) (image.Image, bool) { return nil, false }

func (f *fakeValidator) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeValidator) callsFor(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func writeFile(t *testing.T, fs afero.Fs, path string, size int) {
	t.Helper()
	if err := afero.WriteFile(fs, path, bytes.Repeat([]byte{0xAA}, size), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func newTestService(t *testing.T, v *fakeValidator) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	svc := NewService(WithFs(fs), WithValidator(v))
	return svc, fs
}

func TestDiscoverMixedFolder(t *testing.T) {
	v := newFakeValidator("b.jpg")
	svc, fs := newTestService(t, v)

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/a.jpg", 500)
	writeFile(t, fs, "/photos/b.jpg", 500)
	writeFile(t, fs, "/photos/c.txt", 500)
	writeFile(t, fs, "/photos/d.PNG", 500)

	paths, err := svc.Discover("/photos")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"/photos/a.jpg", "/photos/d.PNG"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}

	// c.txt never reaches the validator; the others do once each.
	if v.callsFor("c.txt") != 0 {
		t.Error("validator called for non-image extension")
	}
	if v.totalCalls() != 3 {
		t.Errorf("validator called %d times, want 3", v.totalCalls())
	}
}

func TestDiscoverSecondScanUsesCache(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/a.jpg", 500)
	writeFile(t, fs, "/photos/b.jpg", 500)

	first, err := svc.Discover("/photos")
	if err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := v.totalCalls()

	second, err := svc.Discover("/photos")
	if err != nil {
		t.Fatal(err)
	}

	if v.totalCalls() != callsAfterFirst {
		t.Errorf("second scan made %d extra validator calls, want 0", v.totalCalls()-callsAfterFirst)
	}
	if len(first) != len(second) {
		t.Fatalf("scans disagree: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("result %d changed between scans: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestDiscoverRevalidatesOnMtimeChange(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/a.jpg", 500)

	if _, err := svc.Discover("/photos"); err != nil {
		t.Fatal(err)
	}
	if v.callsFor("a.jpg") != 1 {
		t.Fatalf("expected one validation, got %d", v.callsFor("a.jpg"))
	}

	// Rewrite bumps the mtime, so the cached verdict no longer applies.
	writeFile(t, fs, "/photos/a.jpg", 600)
	if err := fs.Chtimes("/photos/a.jpg", time.Now().Add(time.Hour), time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Discover("/photos"); err != nil {
		t.Fatal(err)
	}
	if v.callsFor("a.jpg") != 2 {
		t.Errorf("expected revalidation after mtime change, got %d calls", v.callsFor("a.jpg"))
	}
}

func TestDiscoverCorruptionHeuristic(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/empty.jpg", 0)
	writeFile(t, fs, "/photos/tiny.jpg", 50)
	writeFile(t, fs, "/photos/real.jpg", 500)

	paths, err := svc.Discover("/photos")
	if err != nil {
		t.Fatal(err)
	}

	if len(paths) != 1 || paths[0] != "/photos/real.jpg" {
		t.Errorf("got %v, want only real.jpg", paths)
	}
	if v.callsFor("empty.jpg") != 0 || v.callsFor("tiny.jpg") != 0 {
		t.Error("undersized files must be rejected without invoking the validator")
	}
	if v.callsFor("real.jpg") != 1 {
		t.Errorf("real.jpg validated %d times, want 1", v.callsFor("real.jpg"))
	}
}

func TestDiscoverSkipsSubdirectories(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)

	if err := fs.MkdirAll("/photos/nested", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/top.jpg", 500)
	writeFile(t, fs, "/photos/nested/deep.jpg", 500)

	paths, err := svc.Discover("/photos")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "/photos/top.jpg" {
		t.Errorf("got %v, want only the top-level file", paths)
	}
}

func TestDiscoverEmptyFolder(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}

	paths, err := svc.Discover("/photos")
	if err != nil {
		t.Fatalf("empty folder must not error: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("got %v, want empty", paths)
	}
}

func TestDiscoverMissingFolder(t *testing.T) {
	svc, _ := newTestService(t, newFakeValidator())

	paths, err := svc.Discover("/nope")
	if !errors.Is(err, ErrFolderNotFound) {
		t.Fatalf("err = %v, want ErrFolderNotFound", err)
	}
	if len(paths) != 0 {
		t.Errorf("got %v, want empty result with error", paths)
	}

	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatal("error should be a *Error")
	}
	if derr.Kind != KindFile {
		t.Errorf("Kind = %v, want KindFile", derr.Kind)
	}
}

func TestDiscoverFileAsFolder(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)
	writeFile(t, fs, "/photos.jpg", 500)

	_, err := svc.Discover("/photos.jpg")
	if !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("err = %v, want ErrNotADirectory", err)
	}
}

func TestDiscoverFolderCacheOptIn(t *testing.T) {
	v := newFakeValidator()
	fs := afero.NewMemMapFs()
	svc := NewService(WithFs(fs), WithValidator(v), WithFolderCache(true))

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/a.jpg", 500)

	if _, err := svc.Discover("/photos"); err != nil {
		t.Fatal(err)
	}
	before := svc.Stats().CacheHits
	if _, err := svc.Discover("/photos"); err != nil {
		t.Fatal(err)
	}
	if svc.Stats().CacheHits <= before {
		t.Error("expected a folder-tier cache hit on the second scan")
	}
}

func TestServiceStats(t *testing.T) {
	v := newFakeValidator("bad.jpg")
	svc, fs := newTestService(t, v)

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/good.jpg", 500)
	writeFile(t, fs, "/photos/bad.jpg", 500)

	if _, err := svc.Discover("/photos"); err != nil {
		t.Fatal(err)
	}

	stats := svc.Stats()
	if stats.TotalScans != 1 {
		t.Errorf("TotalScans = %d, want 1", stats.TotalScans)
	}
	if stats.TotalFilesScanned != 2 {
		t.Errorf("TotalFilesScanned = %d, want 2", stats.TotalFilesScanned)
	}
	if stats.TotalFilesFound != 1 {
		t.Errorf("TotalFilesFound = %d, want 1", stats.TotalFilesFound)
	}
	if stats.ValidationFailures != 1 {
		t.Errorf("ValidationFailures = %d, want 1", stats.ValidationFailures)
	}
	if stats.TotalScanTime <= 0 {
		t.Error("TotalScanTime should be positive")
	}
}

func TestSupportedExtensions(t *testing.T) {
	svc, _ := newTestService(t, newFakeValidator())

	exts := svc.SupportedExtensions()
	if len(exts) != 7 {
		t.Fatalf("got %d extensions, want 7: %v", len(exts), exts)
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Errorf("extensions not sorted: %v", exts)
		}
	}

	// Mutating the returned slice must not affect the service.
	exts[0] = ".exe"
	if again := svc.SupportedExtensions(); again[0] == ".exe" {
		t.Error("SupportedExtensions must return a fresh copy")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindFile, "file"},
		{KindValidation, "validation"},
		{KindSystem, "system"},
		{KindPerformance, "performance"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}
