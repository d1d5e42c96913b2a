// Package massive implements the massive-parallel execution tier
// (spec.md §4.H.2.4): a memory-mapped inventory file and a memory-mapped
// result-slot array plus error-text arena, so very large inventories can
// be handed to worker processes without per-test IPC overhead.
package massive

import "encoding/binary"

// slotSize is the fixed on-disk/in-memory size of one ResultSlot record:
// testIDHash(8) + passFlag(1) + pad(3) + durationNS(8) + errorOffset(4)
// + errorLength(4) = 28 bytes, rounded up to 32 for alignment.
const slotSize = 32

// ResultSlot is one test's result, as packed into the memory-mapped
// result region (spec.md §4.H.2.4: "test-id hash, pass flag, duration,
// error-offset, error-length").
type ResultSlot struct {
	TestIDHash  uint64
	Pass        bool
	DurationNS  int64
	ErrorOffset uint32
	ErrorLength uint32
}

func (s ResultSlot) encode() [slotSize]byte {
	var buf [slotSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], s.TestIDHash)
	if s.Pass {
		buf[8] = 1
	}
	binary.LittleEndian.PutUint64(buf[12:20], uint64(s.DurationNS))
	binary.LittleEndian.PutUint32(buf[20:24], s.ErrorOffset)
	binary.LittleEndian.PutUint32(buf[24:28], s.ErrorLength)
	return buf
}

func decodeSlot(buf []byte) ResultSlot {
	return ResultSlot{
		TestIDHash:  binary.LittleEndian.Uint64(buf[0:8]),
		Pass:        buf[8] != 0,
		DurationNS:  int64(binary.LittleEndian.Uint64(buf[12:20])),
		ErrorOffset: binary.LittleEndian.Uint32(buf[20:24]),
		ErrorLength: binary.LittleEndian.Uint32(buf[24:28]),
	}
}

// TestIDHash hashes a test ID into the 64-bit key ResultSlot carries,
// using FNV-1a (stdlib, collision-tolerant enough for progress polling —
// the authoritative match is still the caller's own id->index map).
func TestIDHash(id string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(id); i++ {
		h ^= uint64(id[i])
		h *= prime64
	}
	return h
}
