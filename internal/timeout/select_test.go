package timeout_test

import (
	"testing"
	"time"

	"github.com/fastestgo/fastest/internal/timeout"
)

func TestSelectExplicitWins(t *testing.T) {
	d := timeout.Defaults{Async: 60 * time.Second, Global: 30 * time.Second}
	got := timeout.Select(5*time.Second, timeout.CategoryAsync, d)
	if got != 5*time.Second {
		t.Errorf("Select = %v, want explicit 5s", got)
	}
}

func TestSelectCategoryDefault(t *testing.T) {
	d := timeout.Defaults{Async: 60 * time.Second, Sync: 10 * time.Second, Global: 30 * time.Second}
	got := timeout.Select(0, timeout.CategorySync, d)
	if got != 10*time.Second {
		t.Errorf("Select = %v, want sync default 10s", got)
	}
}

func TestSelectFallsBackToGlobal(t *testing.T) {
	d := timeout.Defaults{Global: 30 * time.Second}
	got := timeout.Select(0, timeout.CategoryFixture, d)
	if got != 30*time.Second {
		t.Errorf("Select = %v, want global 30s", got)
	}
}

func TestScalerBoundedAndDisabledByDefault(t *testing.T) {
	base := 10 * time.Second

	disabled := timeout.Scaler{}
	if got := disabled.Scale(base, 5.0); got != base {
		t.Errorf("disabled Scale = %v, want unchanged %v", got, base)
	}

	enabled := timeout.Scaler{Enabled: true, MaxFactor: 2.0}
	if got := enabled.Scale(base, 5.0); got != 2*base {
		t.Errorf("enabled Scale(load=5) = %v, want capped at 2x = %v", got, 2*base)
	}
	if got := enabled.Scale(base, 0.5); got != base {
		t.Errorf("enabled Scale(load<1) = %v, want unchanged %v", got, base)
	}
}
