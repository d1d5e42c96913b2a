package result

import (
	"testing"
	"time"

	"github.com/fastestgo/fastest/internal/model"
)

func TestNewEntryFlattensCauseChain(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := model.TestResult{
		TestID:   "t1",
		Outcome:  model.Failed,
		Duration: 2 * time.Second,
		Tier:     "Embedded",
		Error: &model.StructuredError{
			Message: "outer",
			Frames:  []model.Frame{{File: "a.py", Line: 10}},
			Cause:   &model.StructuredError{Message: "inner"},
		},
	}

	e := NewEntry(start, r)

	if e.TestID != "t1" || e.Tier != "Embedded" {
		t.Fatalf("got %+v", e)
	}
	if !e.End.Equal(start.Add(2 * time.Second)) {
		t.Errorf("End = %v, want %v", e.End, start.Add(2*time.Second))
	}
	if len(e.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2 entries", e.Errors)
	}
	if e.Errors[0].Reason != "outer" || e.Errors[0].File != "a.py" || e.Errors[0].Line != 10 {
		t.Errorf("Errors[0] = %+v", e.Errors[0])
	}
	if e.Errors[1].Reason != "inner" {
		t.Errorf("Errors[1] = %+v", e.Errors[1])
	}
}

func TestNewEntryOmitsErrorsWhenNil(t *testing.T) {
	e := NewEntry(time.Now(), model.TestResult{TestID: "t2", Outcome: model.Passed})
	if e.Errors != nil {
		t.Errorf("Errors = %v, want nil", e.Errors)
	}
}
