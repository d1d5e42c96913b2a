package logging_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fastestgo/fastest/internal/logging"
)

func TestBufferLoggerCapturesLines(t *testing.T) {
	buf := logging.NewBufferLogger()
	ctx := logging.AttachLogger(context.Background(), buf)

	logging.Info(ctx, "hello ", "world")
	logging.Warnf(ctx, "count=%d", 3)

	lines := buf.Lines()
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "INFO") || !strings.Contains(lines[0], "hello world") {
		t.Errorf("lines[0] = %q, want INFO + hello world", lines[0])
	}
	if !strings.Contains(lines[1], "WARN") || !strings.Contains(lines[1], "count=3") {
		t.Errorf("lines[1] = %q, want WARN + count=3", lines[1])
	}
}

func TestAttachLoggerPropagatesToParent(t *testing.T) {
	parent := logging.NewBufferLogger()
	ctx := logging.AttachLogger(context.Background(), parent)

	child := logging.NewBufferLogger()
	ctx = logging.AttachLogger(ctx, child)

	logging.Error(ctx, "disk on fire")

	if len(parent.Lines()) != 1 {
		t.Errorf("parent got %d lines, want 1 (AttachLogger should forward)", len(parent.Lines()))
	}
	if len(child.Lines()) != 1 {
		t.Errorf("child got %d lines, want 1", len(child.Lines()))
	}
}

func TestAttachLoggerNoPropagationDoesNotForward(t *testing.T) {
	parent := logging.NewBufferLogger()
	ctx := logging.AttachLogger(context.Background(), parent)

	child := logging.NewBufferLogger()
	ctx = logging.AttachLoggerNoPropagation(ctx, child)

	logging.Info(ctx, "isolated")

	if len(parent.Lines()) != 0 {
		t.Errorf("parent got %d lines, want 0 (no propagation)", len(parent.Lines()))
	}
	if len(child.Lines()) != 1 {
		t.Errorf("child got %d lines, want 1", len(child.Lines()))
	}
}

func TestWithPrefixTagsMessages(t *testing.T) {
	buf := logging.NewBufferLogger()
	ctx := logging.AttachLogger(context.Background(), buf)
	ctx = logging.WithPrefix(ctx, "[test_foo] ")

	logging.Info(ctx, "started")

	lines := buf.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "[test_foo] started") {
		t.Errorf("lines = %v, want a line containing [test_foo] started", lines)
	}
}

func TestHasLogger(t *testing.T) {
	if logging.HasLogger(context.Background()) {
		t.Errorf("HasLogger(background) = true, want false")
	}
	ctx := logging.AttachLogger(context.Background(), logging.NewBufferLogger())
	if !logging.HasLogger(ctx) {
		t.Errorf("HasLogger(attached) = false, want true")
	}
}
