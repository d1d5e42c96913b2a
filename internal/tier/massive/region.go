package massive

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is the memory-mapped result area: a fixed-size header (atomic
// completion counter), a slot array (one ResultSlot per test, written in
// place by whichever worker finishes that test), and an error-text arena
// workers append truncated failure messages into.
//
// Grounded on SPEC_FULL.md §11's domain-stack assignment of
// golang.org/x/sys/unix for this tier (the teacher already depends on it
// for process-group signaling in internal/runner/service.go); Mmap/
// Munmap here is the same library applied to its other documented
// purpose, shared-memory mapping.
type Region struct {
	file *os.File
	data []byte

	slotsOffset int
	arenaOffset int
	arenaCap    int
	arenaUsed   int32 // atomic
}

const headerSize = 8 // completion counter, uint64

// Create allocates (truncating/creating) a backing file at path sized to
// hold numSlots result slots plus an arenaCap-byte error-text arena, and
// maps it MAP_SHARED so every worker process attaching to path sees the
// same memory.
func Create(path string, numSlots, arenaCap int) (*Region, error) {
	size := headerSize + numSlots*slotSize + arenaCap
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap result region: %w", err)
	}

	return &Region{
		file:        f,
		data:        data,
		slotsOffset: headerSize,
		arenaOffset: headerSize + numSlots*slotSize,
		arenaCap:    arenaCap,
	}, nil
}

// Close unmaps and closes the backing file. The file itself is left on
// disk for the caller to remove (or keep, for post-mortem debugging of a
// crashed run).
func (r *Region) Close() error {
	if err := unix.Munmap(r.data); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// WriteSlot stores result at slot index i and bumps the completion
// counter. errorText, if non-empty, is appended to the shared arena and
// slot's ErrorOffset/ErrorLength are set to reference it.
func (r *Region) WriteSlot(i int, slot ResultSlot, errorText string) error {
	if errorText != "" {
		if off, ok := r.appendArena(errorText); ok {
			slot.ErrorOffset = off
			slot.ErrorLength = uint32(len(errorText))
		}
		// arena full: slot keeps its zero-value error fields; the pass
		// flag and duration are still recorded, only the message is lost.
	}
	start := r.slotsOffset + i*slotSize
	buf := slot.encode()
	copy(r.data[start:start+slotSize], buf[:])
	r.IncrementCompleted()
	return nil
}

// ReadSlot returns the slot at index i, decoded from shared memory.
func (r *Region) ReadSlot(i int) ResultSlot {
	start := r.slotsOffset + i*slotSize
	return decodeSlot(r.data[start : start+slotSize])
}

// ErrorText reads back the error text a WriteSlot call appended to the
// arena, given the slot's ErrorOffset/ErrorLength.
func (r *Region) ErrorText(slot ResultSlot) string {
	if slot.ErrorLength == 0 {
		return ""
	}
	start := r.arenaOffset + int(slot.ErrorOffset)
	end := start + int(slot.ErrorLength)
	if end > len(r.data) {
		return ""
	}
	return string(r.data[start:end])
}

func (r *Region) appendArena(text string) (uint32, bool) {
	n := int32(len(text))
	off := atomic.AddInt32(&r.arenaUsed, n) - n
	if int(off)+len(text) > r.arenaCap {
		atomic.AddInt32(&r.arenaUsed, -n)
		return 0, false
	}
	start := r.arenaOffset + int(off)
	copy(r.data[start:start+len(text)], text)
	return uint32(off), true
}

// counter returns a pointer to the shared completion counter at the
// start of the mapped region. The mapping is page-aligned (mmap always
// returns page-aligned memory), so a uint64 at offset 0 is itself
// 8-byte aligned and safe for atomic access.
func (r *Region) counter() *uint64 {
	return (*uint64)(unsafe.Pointer(&r.data[0]))
}

// IncrementCompleted atomically bumps the shared completion counter, for
// a worker to signal one more test finished.
func (r *Region) IncrementCompleted() uint64 {
	return atomic.AddUint64(r.counter(), 1)
}

// Completed reads the shared completion counter, for the parent's
// progress poll.
func (r *Region) Completed() uint64 {
	return atomic.LoadUint64(r.counter())
}
