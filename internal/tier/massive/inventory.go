package massive

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// InventoryItem is one test's worker-facing execution input, serialized
// into the memory-mapped inventory file (spec.md §4.H.2.4: "a
// memory-mapped file serializes the test inventory").
type InventoryItem struct {
	ID       string                 `json:"id"`
	Body     string                 `json:"body"`
	Fixtures map[string]interface{} `json:"fixtures"`
}

// Inventory is the memory-mapped, read-only (from a worker's point of
// view) test list. Serialization uses line-delimited JSON rather than a
// fixed-width struct layout, since an item's Body/Fixtures are
// variable-length; the mapping still avoids a read() syscall per worker
// and lets every worker process share one page cache entry for the
// whole inventory.
type Inventory struct {
	file *os.File
	data []byte
	// offsets[i] and offsets[i+1] bound the i-th item's JSON-line slice.
	offsets []int
}

// WriteInventory serializes items as newline-delimited JSON into a file
// at path, then maps it MAP_SHARED|PROT_READ for workers to attach to.
func WriteInventory(path string, items []InventoryItem) (*Inventory, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}

	offsets := make([]int, 0, len(items)+1)
	offsets = append(offsets, 0)
	for _, it := range items {
		line, err := json.Marshal(it)
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			f.Close()
			return nil, err
		}
		offsets = append(offsets, offsets[len(offsets)-1]+len(line)+1)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}

	size := offsets[len(offsets)-1]
	if size == 0 {
		size = 1 // mmap refuses a zero-length mapping
		if err := f.Truncate(1); err != nil {
			f.Close()
			return nil, err
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap inventory: %w", err)
	}

	return &Inventory{file: f, data: data, offsets: offsets}, nil
}

// Len returns the number of items in the inventory.
func (inv *Inventory) Len() int { return len(inv.offsets) - 1 }

// Item decodes the i-th inventory item from the mapped memory.
func (inv *Inventory) Item(i int) (InventoryItem, error) {
	var it InventoryItem
	line := inv.data[inv.offsets[i] : inv.offsets[i+1]-1] // drop trailing '\n'
	if err := json.Unmarshal(line, &it); err != nil {
		return InventoryItem{}, err
	}
	return it, nil
}

// Close unmaps and closes the backing file.
func (inv *Inventory) Close() error {
	if err := unix.Munmap(inv.data); err != nil {
		inv.file.Close()
		return err
	}
	return inv.file.Close()
}
