package massive

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestInventoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	items := []InventoryItem{
		{ID: "t1", Body: "assert 1 == 1"},
		{ID: "t2", Body: "assert 1 == 2", Fixtures: map[string]interface{}{"x": int64(1)}},
	}
	inv, err := WriteInventory(filepath.Join(dir, "inv.mmap"), items)
	if err != nil {
		t.Fatalf("WriteInventory: %v", err)
	}
	defer inv.Close()

	if inv.Len() != 2 {
		t.Fatalf("Len = %d, want 2", inv.Len())
	}
	got, err := inv.Item(1)
	if err != nil {
		t.Fatalf("Item(1): %v", err)
	}
	if got.ID != "t2" || got.Fixtures["x"].(float64) != 1 {
		t.Errorf("Item(1) = %+v, want t2 with fixture x=1", got)
	}
}

func TestRegionWriteReadSlotAndArena(t *testing.T) {
	dir := t.TempDir()
	region, err := Create(filepath.Join(dir, "res.mmap"), 4, 1024)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer region.Close()

	region.WriteSlot(0, ResultSlot{TestIDHash: 42, Pass: false, DurationNS: 100}, "boom")
	got := region.ReadSlot(0)
	if got.TestIDHash != 42 || got.Pass || got.DurationNS != 100 {
		t.Errorf("ReadSlot = %+v, want hash=42 pass=false duration=100", got)
	}
	if text := region.ErrorText(got); text != "boom" {
		t.Errorf("ErrorText = %q, want boom", text)
	}
	if region.Completed() != 1 {
		t.Errorf("Completed = %d, want 1", region.Completed())
	}
}

func TestTierRunExecutesAndRecordsSlots(t *testing.T) {
	tier := New(t.TempDir())
	items := []InventoryItem{
		{ID: "pass1", Body: "assert 1 == 1"},
		{ID: "fail1", Body: "assert 1 == 2"},
	}
	inv, region, err := tier.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer inv.Close()
	defer region.Close()

	s0 := region.ReadSlot(0)
	if !s0.Pass {
		t.Errorf("slot 0 (pass1) Pass = false, want true")
	}
	s1 := region.ReadSlot(1)
	if s1.Pass {
		t.Errorf("slot 1 (fail1) Pass = true, want false")
	}
	if region.Completed() != 2 {
		t.Errorf("Completed = %d, want 2", region.Completed())
	}
}

func TestPollerStreamsSlotsInOrder(t *testing.T) {
	dir := t.TempDir()
	region, err := Create(filepath.Join(dir, "res.mmap"), 3, 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer region.Close()

	go func() {
		for i := 0; i < 3; i++ {
			time.Sleep(2 * time.Millisecond)
			region.WriteSlot(i, ResultSlot{TestIDHash: uint64(i)}, "")
		}
	}()

	var seen []int
	poller := NewPoller(region, 3, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = poller.Run(ctx, func(index int, slot ResultSlot) error {
		seen = append(seen, index)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Errorf("seen = %v, want [0 1 2]", seen)
	}
}
