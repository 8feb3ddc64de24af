package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	// Save and restore original environment
	originalEnv := os.Getenv("DISCOVERY_WORKERS")
	defer func() {
		if originalEnv != "" {
			os.Setenv("DISCOVERY_WORKERS", originalEnv)
		} else {
			os.Unsetenv("DISCOVERY_WORKERS")
		}
	}()

	os.Unsetenv("DISCOVERY_WORKERS")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Fractional multiplier never drops below one",
			multiplier: 0.1,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want between %d and %d",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	originalEnv := os.Getenv("DISCOVERY_WORKERS")
	defer func() {
		if originalEnv != "" {
			os.Setenv("DISCOVERY_WORKERS", originalEnv)
		} else {
			os.Unsetenv("DISCOVERY_WORKERS")
		}
	}()

	os.Setenv("DISCOVERY_WORKERS", "5")
	if got := Count(1.0, 0); got != 5 {
		t.Errorf("expected override of 5 workers, got %d", got)
	}

	// Override is still capped by the limit
	if got := Count(1.0, 3); got != 3 {
		t.Errorf("expected limit to cap override at 3, got %d", got)
	}

	// Invalid override falls back to calculation
	os.Setenv("DISCOVERY_WORKERS", "not-a-number")
	if got := Count(1.0, 0); got < 1 {
		t.Errorf("expected at least 1 worker on invalid override, got %d", got)
	}
}

func TestHelpers(t *testing.T) {
	if ForCPU(0) < 1 {
		t.Error("ForCPU returned less than 1")
	}
	if ForIO(0) < ForCPU(0) {
		t.Error("ForIO should return at least as many workers as ForCPU")
	}
	if ForMixed(4) > 4 {
		t.Error("ForMixed ignored limit")
	}
}
