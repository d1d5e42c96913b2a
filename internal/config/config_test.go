package config_test

import (
	"testing"
	"time"

	"github.com/fastestgo/fastest/internal/config"
)

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	got := config.Config{}.WithDefaults()

	if got.DefaultTimeout != 30*time.Second {
		t.Errorf("DefaultTimeout = %v, want 30s", got.DefaultTimeout)
	}
	if got.AsyncTimeout != 60*time.Second {
		t.Errorf("AsyncTimeout = %v, want 60s", got.AsyncTimeout)
	}
	if got.MaxWorkers != 0 {
		t.Errorf("MaxWorkers = %d, want 0 (left to engine.NewPool's runtime.NumCPU() default)", got.MaxWorkers)
	}
	if got.MaxOutputSize != 1<<20 {
		t.Errorf("MaxOutputSize = %d, want 1MiB", got.MaxOutputSize)
	}
	if got.MassiveThreshold != 50000 {
		t.Errorf("MassiveThreshold = %d, want 50000", got.MassiveThreshold)
	}
}

func TestWithDefaultsPreservesSetValues(t *testing.T) {
	c := config.Config{MaxWorkers: 8, DefaultTimeout: 5 * time.Second}.WithDefaults()
	if c.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8 (explicit value should survive)", c.MaxWorkers)
	}
	if c.DefaultTimeout != 5*time.Second {
		t.Errorf("DefaultTimeout = %v, want 5s", c.DefaultTimeout)
	}
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	tests := []config.Config{
		{MaxWorkers: -1},
		{MaxOutputSize: -1},
		{MassiveThreshold: -1},
	}
	for _, c := range tests {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", c)
		}
	}
}

func TestValidateAcceptsZeroValue(t *testing.T) {
	if err := (config.Config{}).Validate(); err != nil {
		t.Errorf("Validate(zero value) failed: %v", err)
	}
}
