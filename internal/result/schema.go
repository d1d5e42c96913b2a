package result

import (
	"time"

	"github.com/fastestgo/fastest/internal/model"
)

// Entry is one test's on-disk result record, the schema a results.json-
// style reporter would serialize. Grounded on
// `_examples/nya3jp-tast/.../internal/run/resultsjson/resultsjson.go`'s
// `Test`/`Error`/`Result` shape: an embedded identity block, a flat error
// list, and start/end timestamps rather than a bare duration, so an
// external reporter can reconstruct wall-clock placement across a run.
type Entry struct {
	TestID string `json:"testId"`
	Tier   string `json:"tier,omitempty"`

	Outcome string `json:"outcome"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	SkipReason string  `json:"skipReason,omitempty"`
	Errors     []Error `json:"errors,omitempty"`

	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	CreatedFiles []string          `json:"createdFiles,omitempty"`
	EnvDiff      map[string]string `json:"envDiff,omitempty"`
}

// Error mirrors resultsjson.Error's flattened single-level shape; a
// model.StructuredError's Cause chain is flattened into successive
// Error entries, outermost first.
type Error struct {
	Reason string `json:"reason"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// NewEntry builds an Entry from a model.TestResult, given the wall-clock
// start time the caller recorded before dispatching the test.
func NewEntry(start time.Time, r model.TestResult) Entry {
	e := Entry{
		TestID:       r.TestID,
		Tier:         r.Tier,
		Outcome:      r.Outcome.String(),
		Start:        start,
		End:          start.Add(r.Duration),
		SkipReason:   r.SkipReason,
		Stdout:       r.Stdout,
		Stderr:       r.Stderr,
		CreatedFiles: r.CreatedFiles,
		EnvDiff:      r.EnvDiff,
	}
	for se := r.Error; se != nil; se = se.Cause {
		err := Error{Reason: se.Message}
		if len(se.Frames) > 0 {
			err.File = se.Frames[0].File
			err.Line = se.Frames[0].Line
		}
		e.Errors = append(e.Errors, err)
	}
	return e
}

// Report is the full on-disk results document.
type Report struct {
	Entries []Entry `json:"entries"`
}
