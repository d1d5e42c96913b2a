package capture

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/fastestgo/fastest/internal/errors/stack"
	"github.com/fastestgo/fastest/internal/model"
)

// maxLocalValueLen bounds how much of a local variable's string form is
// kept (spec.md §4.F: "values longer than a fixed budget are elided").
const maxLocalValueLen = 256

// FromPanic builds a model.StructuredError for a recovered Go panic,
// using stk (typically captured via stack.New right after recover) for
// the frame list. Go's compiled frames carry no accessible local-variable
// table the way an interpreted tier's frame does, so Locals is always
// empty here; the embedded-interpreter tier (internal/tier/embedded)
// populates Locals itself from the Starlark thread's frame bindings,
// where that information actually exists.
func FromPanic(recovered interface{}, stk stack.Stack) *model.StructuredError {
	return &model.StructuredError{
		Type:    "panic",
		Message: fmt.Sprint(recovered),
		Frames:  renderFrames(stk),
	}
}

// FromError builds a model.StructuredError from a plain Go error, walking
// its Unwrap chain into Cause.
func FromError(typeName string, err error, stk stack.Stack) *model.StructuredError {
	se := &model.StructuredError{
		Type:    typeName,
		Message: err.Error(),
		Frames:  renderFrames(stk),
	}
	if cause := unwrap(err); cause != nil {
		se.Cause = FromError(typeName, cause, nil)
	}
	return se
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func renderFrames(stk stack.Stack) []model.Frame {
	if stk == nil {
		return nil
	}
	frames := make([]model.Frame, 0, len(stk))
	for _, f := range stk.Frames() {
		frames = append(frames, model.Frame{
			File: f.File,
			Line: f.Line,
			Func: f.Function,
			Code: sourceLine(f.File, f.Line),
		})
	}
	return frames
}

var sourceCache sync.Map // file path -> []string lines, best-effort

// sourceLine returns the trimmed source text at file:line, or "" if the
// file cannot be read (e.g. it was compiled from a stripped binary).
func sourceLine(file string, line int) string {
	v, ok := sourceCache.Load(file)
	if !ok {
		lines, _ := readLines(file)
		sourceCache.Store(file, lines)
		v = lines
	}
	lines, _ := v.([]string)
	if line <= 0 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// TruncateLocal elides a local variable's string form past
// maxLocalValueLen, per spec.md §4.F.
func TruncateLocal(s string) string {
	if len(s) <= maxLocalValueLen {
		return s
	}
	return s[:maxLocalValueLen] + "...(truncated)"
}
