package malloc

import "testing"
import "unsafe"

import s "github.com/bnclabs/gosettings"

func newTestArena(capacity, threshold int64) *Arena {
	return NewArena(s.Settings{
		"capacity":       capacity,
		"mmap.threshold": threshold,
	})
}

func TestAllocateInvalidSize(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	if ptr := arena.Allocate(0); ptr != nil {
		t.Errorf("expected nil for size 0")
	}
	if ptr := arena.Allocate(-1); ptr != nil {
		t.Errorf("expected nil for negative size")
	}
	if ptr := arena.Allocate(MaxAllocSize + 1); ptr != nil {
		t.Errorf("expected nil for size above MaxAllocSize")
	}
}

func TestAllocateWritable(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	ptr := arena.Allocate(256)
	if ptr == nil {
		t.Fatalf("unexpected allocation failure")
	}
	b := unsafe.Slice((*byte)(ptr), 256)
	for i := range b {
		b[i] = byte(i)
	}
	for i := range b {
		if b[i] != byte(i) {
			t.Fatalf("payload corrupted at offset %v", i)
		}
	}
}

func TestAllocateAlignment(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	for _, size := range []int64{1, 3, 7, 9, 100, 1001} {
		ptr := arena.Allocate(size)
		if ptr == nil {
			t.Fatalf("unexpected allocation failure for size %v", size)
		}
		if uintptr(ptr)%uintptr(Alignment) != 0 {
			t.Errorf("payload for size %v not aligned: %p", size, ptr)
		}
	}
}

func TestFreeThenAllocateSplits(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	big := arena.Allocate(2048)
	if big == nil {
		t.Fatalf("unexpected allocation failure")
	}
	arena.Free(big)
	if n := arena.NumFreeBlocks(); n != 1 {
		t.Fatalf("expected 1 free block after Free, got %v", n)
	}

	small := arena.Allocate(100)
	if small != big {
		t.Errorf("expected the split prefix to reuse the freed block's address")
	}
	if n := arena.NumFreeBlocks(); n != 1 {
		t.Errorf("expected the remainder to land in exactly one free block, got %v", n)
	}
}

func TestFreeCoalescesBothNeighbours(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	a := arena.Allocate(64)
	b := arena.Allocate(64)
	c := arena.Allocate(64)
	if a == nil || b == nil || c == nil {
		t.Fatalf("unexpected allocation failure")
	}

	arena.Free(a)
	arena.Free(c)
	if n := arena.NumFreeBlocks(); n != 2 {
		t.Fatalf("expected 2 disjoint free blocks before middle is freed, got %v", n)
	}

	arena.Free(b)
	if n := arena.NumFreeBlocks(); n != 1 {
		t.Errorf("expected a and b and c to coalesce into one free block, got %v free blocks", n)
	}
}

func TestZeroAllocateZeroesPayload(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	scratch := arena.Allocate(512)
	b := unsafe.Slice((*byte)(scratch), 512)
	for i := range b {
		b[i] = 0xAB
	}
	arena.Free(scratch)

	ptr := arena.ZeroAllocate(16, 32)
	if ptr == nil {
		t.Fatalf("unexpected allocation failure")
	}
	out := unsafe.Slice((*byte)(ptr), 16*32)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("expected zero byte at offset %v, got %v", i, v)
		}
	}
}

func TestReallocateShrinkInPlace(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	ptr := arena.Allocate(2048)
	b := unsafe.Slice((*byte)(ptr), 2048)
	for i := range b {
		b[i] = byte(i)
	}

	shrunk := arena.Reallocate(ptr, 64)
	if shrunk != ptr {
		t.Errorf("expected shrink-in-place to keep the same address")
	}
	out := unsafe.Slice((*byte)(shrunk), 64)
	for i := range out {
		if out[i] != byte(i) {
			t.Fatalf("payload not preserved at offset %v after shrink", i)
		}
	}
	if n := arena.NumFreeBlocks(); n != 1 {
		t.Errorf("expected the split remainder to become a free block, got %v", n)
	}
}

func TestReallocateGrowsIntoFreedNeighbour(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	first := arena.Allocate(64)
	second := arena.Allocate(256)
	arena.Free(second)

	grown := arena.Reallocate(first, 64+int64(headerSize)+256)
	if grown != first {
		t.Errorf("expected merge-with-higher-neighbour to keep the same address")
	}
}

func TestReallocateNilActsAsAllocate(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	ptr := arena.Reallocate(nil, 128)
	if ptr == nil {
		t.Fatalf("expected Reallocate(nil, size) to behave as Allocate(size)")
	}
}

func TestReallocateInvalidSize(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	ptr := arena.Allocate(64)
	if got := arena.Reallocate(ptr, 0); got != nil {
		t.Errorf("expected nil for size 0")
	}
	if got := arena.Reallocate(ptr, MaxAllocSize+1); got != nil {
		t.Errorf("expected nil for size above MaxAllocSize")
	}
}

func TestMmapThresholdRouting(t *testing.T) {
	threshold := int64(128 * 1024)
	arena := newTestArena(16*1024*1024, threshold)

	small := arena.Allocate(threshold - Alignment)
	big := arena.Allocate(threshold)
	if small == nil || big == nil {
		t.Fatalf("unexpected allocation failure")
	}

	before := arena.NumAllocatedBlocks()
	arena.Free(big)
	after := arena.NumAllocatedBlocks()
	if before-after != 1 {
		t.Errorf("expected freeing the mmap block to drop allocated-block count by 1, got delta %v", before-after)
	}

	arena.Free(small)
}

func TestStatsMetaData(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	arena.Allocate(64)
	arena.Allocate(128)

	if arena.SizeMetaData() != headerSize {
		t.Errorf("expected SizeMetaData() == headerSize")
	}
	if got, want := arena.NumMetaDataBytes(), arena.NumAllocatedBlocks()*headerSize; got != want {
		t.Errorf("expected NumMetaDataBytes() %v, got %v", want, got)
	}
}

func TestWildernessExtend(t *testing.T) {
	arena := newTestArena(1024*1024, 128*1024)
	a := arena.Allocate(128)
	b := arena.Allocate(128)
	arena.Free(b)

	// b is now the wilderness block: asking for more than it holds
	// should extend the break rather than carving a brand new block.
	blocksBefore := arena.NumAllocatedBlocks()
	c := arena.Allocate(512)
	if c == nil {
		t.Fatalf("unexpected allocation failure")
	}
	if arena.NumAllocatedBlocks() != blocksBefore {
		t.Errorf("expected wilderness extension to reuse the existing block count")
	}
	_ = a
}

func TestOutOfCapacity(t *testing.T) {
	arena := newTestArena(4096, 128*1024)
	var last unsafe.Pointer
	for i := 0; i < 1000; i++ {
		ptr := arena.Allocate(256)
		if ptr == nil {
			return
		}
		last = ptr
	}
	t.Fatalf("expected allocation to eventually fail under a 4KiB capacity, last=%p", last)
}
