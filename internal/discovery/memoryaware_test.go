package discovery

import (
	"errors"
	"fmt"
	"testing"
)

func TestMemoryAwareDefaults(t *testing.T) {
	svc, _ := newTestService(t, newFakeValidator())
	m := NewMemoryAware(svc, MemoryAwareConfig{})

	status := m.Status()
	if status.WarningThreshold != DefaultWarningThreshold {
		t.Errorf("warning threshold = %f, want %f", status.WarningThreshold, DefaultWarningThreshold)
	}
	if status.CriticalThreshold != DefaultCriticalThreshold {
		t.Errorf("critical threshold = %f, want %f", status.CriticalThreshold, DefaultCriticalThreshold)
	}
}

func TestMemoryAwareDelegatesAndCaches(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)
	m := NewMemoryAware(svc, MemoryAwareConfig{})

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/a.jpg", 500)

	first, err := m.DiscoverWithMemoryManagement("/photos")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("got %v, want one path", first)
	}
	scansAfterFirst := svc.Stats().TotalScans

	second, err := m.DiscoverWithMemoryManagement("/photos")
	if err != nil {
		t.Fatal(err)
	}
	if svc.Stats().TotalScans != scansAfterFirst {
		t.Error("second call should short-circuit on the private cache, not rescan")
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("cached result %v differs from original %v", second, first)
	}

	stats := m.Status().Stats
	if stats.TotalCalls != 2 {
		t.Errorf("TotalCalls = %d, want 2", stats.TotalCalls)
	}
	if stats.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", stats.CacheHits)
	}
}

func TestMemoryAwarePrivateCacheBound(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)
	m := NewMemoryAware(svc, MemoryAwareConfig{})

	for i := 0; i < memoryAwareCacheSize+10; i++ {
		folder := fmt.Sprintf("/photos/%d", i)
		if err := fs.MkdirAll(folder, 0755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, fs, folder+"/a.jpg", 500)
		if _, err := m.DiscoverWithMemoryManagement(folder); err != nil {
			t.Fatal(err)
		}
	}

	if cached := m.Status().CachedFolders; cached > memoryAwareCacheSize {
		t.Errorf("private cache holds %d folders, bound is %d", cached, memoryAwareCacheSize)
	}
}

func TestMemoryAwareCriticalPressureEmptiesCache(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)
	// A one-byte limit makes every sample read as critical pressure,
	// so each call's pre-check drops the private cache.
	m := NewMemoryAware(svc, MemoryAwareConfig{MemoryLimitBytes: 1})

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/a.jpg", 500)

	if _, err := m.DiscoverWithMemoryManagement("/photos"); err != nil {
		t.Fatal(err)
	}
	if cached := m.Status().CachedFolders; cached != 0 {
		t.Errorf("CachedFolders = %d under critical pressure, want 0", cached)
	}
	if m.Status().Stats.Cleanups == 0 {
		t.Error("critical pressure should trigger a cleanup")
	}

	scans := svc.Stats().TotalScans
	if _, err := m.DiscoverWithMemoryManagement("/photos"); err != nil {
		t.Fatal(err)
	}
	if svc.Stats().TotalScans == scans {
		t.Error("with the private cache dropped, the next call must rescan")
	}
}

func TestMemoryAwareErrorPassthrough(t *testing.T) {
	svc, _ := newTestService(t, newFakeValidator())
	m := NewMemoryAware(svc, MemoryAwareConfig{})

	paths, err := m.DiscoverWithMemoryManagement("/nope")
	if !errors.Is(err, ErrFolderNotFound) {
		t.Fatalf("err = %v, want ErrFolderNotFound", err)
	}
	if len(paths) != 0 {
		t.Errorf("got %v, want empty result", paths)
	}
}

func TestMemoryAwareForceCleanup(t *testing.T) {
	v := newFakeValidator()
	svc, fs := newTestService(t, v)
	m := NewMemoryAware(svc, MemoryAwareConfig{})

	if err := fs.MkdirAll("/photos", 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/photos/a.jpg", 500)
	if _, err := m.DiscoverWithMemoryManagement("/photos"); err != nil {
		t.Fatal(err)
	}

	result := m.ForceCleanup()
	if result.EntriesCleared != 1 {
		t.Errorf("EntriesCleared = %d, want 1", result.EntriesCleared)
	}
	if result.Duration <= 0 {
		t.Error("Duration should be positive")
	}
	if m.Status().CachedFolders != 0 {
		t.Error("private cache should be empty after cleanup")
	}
	if m.Status().Stats.Cleanups != 1 {
		t.Errorf("Cleanups = %d, want 1", m.Status().Stats.Cleanups)
	}
}

func TestMemoryAwareStatusSnapshot(t *testing.T) {
	svc, _ := newTestService(t, newFakeValidator())
	m := NewMemoryAware(svc, MemoryAwareConfig{})

	status := m.Status()
	if status.Snapshot.Resident == 0 {
		t.Error("snapshot should report a live heap allocation")
	}
	if status.CachedFolders != 0 {
		t.Errorf("CachedFolders = %d on a fresh wrapper, want 0", status.CachedFolders)
	}
}
