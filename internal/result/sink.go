// Package result implements the Result Sink (spec.md §4.I): a bounded
// multi-producer channel that preserves each worker's own insertion
// order while making no cross-worker ordering guarantee, plus the
// resultsjson-style on-disk schema and the structured debug dump
// (SPEC_FULL.md §12).
package result

import "github.com/fastestgo/fastest/internal/model"

// Sink is the bounded multi-producer channel workers push results into
// and the driver drains (spec.md §4.I). It is a thin wrapper over a Go
// channel: channel sends from multiple goroutines are already ordered
// per-sender by Go's memory model, which is exactly the "preserves
// insertion order per worker, no cross-worker guarantee" contract the
// spec asks for — no extra sequencing is needed beyond the channel
// itself.
type Sink struct {
	ch chan model.TestResult
}

// NewSink builds a Sink with the given channel capacity (spec.md §4.I:
// "bounded"). A capacity of 0 yields an unbuffered (synchronous)
// channel.
func NewSink(capacity int) *Sink {
	return &Sink{ch: make(chan model.TestResult, capacity)}
}

// Push publishes one result. It blocks if the sink is full, providing
// the back-pressure that keeps the engine from racing arbitrarily far
// ahead of a slow consumer.
func (s *Sink) Push(r model.TestResult) { s.ch <- r }

// Channel exposes the sink as a plain receive-only channel for a
// consumer (reporter) to range over as a lazy sequence of TestResult
// values (spec.md §4.I: "Consumers... see results as a lazy sequence").
func (s *Sink) Channel() <-chan model.TestResult { return s.ch }

// Close signals that no more results will be pushed. The producer side
// (in cmd/fastest, the goroutine that forwards Pool.Run's results into
// the sink once Pool.Run has closed its own channel) is the only correct
// caller; a consumer must never close a channel it merely reads from.
func (s *Sink) Close() { close(s.ch) }
