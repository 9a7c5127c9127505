package malloc

import "fmt"
import "unsafe"

import s "github.com/bnclabs/gosettings"
import "github.com/dustin/go-humanize"

import "github.com/Almogbs/Custom-Malloc-Implementations/api"
import "github.com/Almogbs/Custom-Malloc-Implementations/lib"
import "github.com/Almogbs/Custom-Malloc-Implementations/osmem"

// Arena is a single-threaded heap: a contiguous, ascending-address
// block list backed by osmem.Provider.Extend for payloads smaller than
// the mmap threshold, plus an unordered list of individually mapped
// blocks for everything at or above it.
type Arena struct {
	logprefix string
	id        lib.Uuid

	mem api.MemProvider

	capacity      int64
	mmapThreshold int64

	heapHead uintptr
	heapTail uintptr
	mmapHead uintptr

	freebins bins

	sizeavg *lib.AverageInt64
	sizehgm *lib.HistogramInt64
}

// NewArena allocates a fresh arena from setts, which should be built
// from Defaultsettings() and then adjusted.
func NewArena(setts s.Settings) *Arena {
	if setts == nil {
		setts = Defaultsettings()
	}
	validatesettings(setts)

	capacity := setts.Int64("capacity")
	threshold := setts.Int64("mmap.threshold")

	uuid, err := lib.Allocuuid(16)
	if err != nil {
		panicerr("malloc: %v", err)
	}
	idstr := make([]byte, 32)
	uuid.Format(idstr)
	logprefix := fmt.Sprintf("MALLOC[%s]", idstr)

	mem, err := osmem.New(logprefix, capacity)
	if err != nil {
		panicerr("malloc: %v", err)
	}

	arena := &Arena{
		logprefix:     logprefix,
		id:            uuid,
		mem:           mem,
		capacity:      capacity,
		mmapThreshold: threshold,
		sizeavg:       &lib.AverageInt64{},
		sizehgm:       lib.NewhistorgramInt64(0, threshold, binWidth),
	}
	infof(
		"%v new arena, capacity %v, mmap-threshold %v",
		logprefix, humanize.Bytes(uint64(capacity)), humanize.Bytes(uint64(threshold)))
	return arena
}

//---- allocator primitives

// Allocate implements api.Allocator.
func (a *Arena) Allocate(size int64) unsafe.Pointer {
	if size <= 0 || size > MaxAllocSize {
		warnf("%v Allocate(%v): %v", a.logprefix, size, ErrInvalidSize)
		return nil
	}
	s := alignUp(size)

	if s >= a.mmapThreshold {
		return a.allocateMmap(s)
	}

	if h := a.freebins.findFit(s); h != nil {
		a.freebins.remove(h)
		a.splitForResize(h, s)
		a.markUsed(h)
		return unsafe.Pointer(h.payload())
	}

	if h := a.extendWilderness(s); h != nil {
		a.markUsed(h)
		return unsafe.Pointer(h.payload())
	}

	h := a.newHeapBlock(s)
	if h == nil {
		return nil
	}
	a.markUsed(h)
	return unsafe.Pointer(h.payload())
}

// ZeroAllocate implements api.Allocator. num*size is checked for
// overflow before delegating to Allocate; an overflowing request is
// treated the same as an over-cap size, returning nil.
func (a *Arena) ZeroAllocate(num, size int64) unsafe.Pointer {
	if num <= 0 || size <= 0 {
		warnf("%v ZeroAllocate(%v, %v): %v", a.logprefix, num, size, ErrInvalidSize)
		return nil
	}
	total := num * size
	if total/num != size {
		warnf("%v ZeroAllocate(%v, %v): %v: overflow", a.logprefix, num, size, ErrInvalidSize)
		return nil
	}
	ptr := a.Allocate(total)
	if ptr == nil {
		return nil
	}
	b := unsafe.Slice((*byte)(ptr), int(total))
	for i := range b {
		b[i] = 0
	}
	return ptr
}

// Free implements api.Allocator. Freeing nil is a no-op.
func (a *Arena) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	h := payloadToHeader(ptr)
	if h.mmap() {
		a.freeMmap(h)
		return
	}
	a.freeHeap(h)
}

// Reallocate implements api.Allocator. A nil ptr behaves as
// Allocate(size).
func (a *Arena) Reallocate(ptr unsafe.Pointer, size int64) unsafe.Pointer {
	if ptr == nil {
		return a.Allocate(size)
	}
	if size <= 0 || size > MaxAllocSize {
		warnf("%v Reallocate(%v): %v", a.logprefix, size, ErrInvalidSize)
		return nil
	}
	want := alignUp(size)
	h := payloadToHeader(ptr)

	if h.mmap() {
		return a.reallocCopy(h, want)
	}

	if h.payloadSize >= want {
		a.splitForResize(h, want)
		return unsafe.Pointer(h.payload())
	}

	if prev := h.heapPrevBlock(); prev != nil && prev.free() &&
		prev.payloadSize+headerSize+h.payloadSize >= want {
		merged := a.mergeIntoPrev(prev, h, minInt64(want, h.payloadSize))
		a.splitForResize(merged, want)
		return unsafe.Pointer(merged.payload())
	}

	if next := h.heapNextBlock(); next != nil && next.free() &&
		h.payloadSize+headerSize+next.payloadSize >= want {
		a.mergeNext(h)
		a.splitForResize(h, want)
		return unsafe.Pointer(h.payload())
	}

	if prev, next := h.heapPrevBlock(), h.heapNextBlock(); prev != nil && prev.free() &&
		next != nil && next.free() &&
		prev.payloadSize+headerSize+h.payloadSize+headerSize+next.payloadSize >= want {
		a.mergeNext(h)
		merged := a.mergeIntoPrev(prev, h, minInt64(want, h.payloadSize))
		a.splitForResize(merged, want)
		return unsafe.Pointer(merged.payload())
	}

	if a.heapTail == h.addr() {
		prev := h.heapPrevBlock()
		usePrev := prev != nil && prev.free()
		base := h.payloadSize
		if usePrev {
			base += headerSize + prev.payloadSize
		}
		deficit := want - base
		if _, err := a.mem.Extend(deficit); err == nil {
			if usePrev {
				h = a.mergeIntoPrev(prev, h, h.payloadSize)
			}
			h.payloadSize = want
			return unsafe.Pointer(h.payload())
		}
	}

	return a.reallocCopy(h, want)
}

// reallocCopy is the fallback shared by the mmap-reuse and the
// out-of-options branches of the reallocation cascade: allocate
// fresh, copy the overlap, free the original.
func (a *Arena) reallocCopy(h *header, want int64) unsafe.Pointer {
	newptr := a.Allocate(want)
	if newptr == nil {
		return nil
	}
	lib.Memcpy(newptr, unsafe.Pointer(h.payload()), int(minInt64(h.payloadSize, want)))
	a.Free(unsafe.Pointer(h.payload()))
	return newptr
}

//---- heap-list mechanics

func (a *Arena) extendWilderness(size int64) *header {
	if a.heapTail == 0 {
		return nil
	}
	tail := blockAt(a.heapTail)
	if !tail.free() {
		return nil
	}
	deficit := size - tail.payloadSize
	if deficit <= 0 {
		return nil // findFit would already have matched this block
	}
	if _, err := a.mem.Extend(deficit); err != nil {
		warnf("%v extendWilderness(%v): %v: %v", a.logprefix, size, ErrExhausted, err)
		return nil
	}
	a.freebins.remove(tail)
	tail.payloadSize = size
	return tail
}

func (a *Arena) newHeapBlock(size int64) *header {
	total := headerSize + size
	addr, err := a.mem.Extend(total)
	if err != nil {
		warnf("%v newHeapBlock(%v): %v: %v", a.logprefix, size, ErrExhausted, err)
		return nil
	}
	h := blockAt(uintptr(addr))
	poisonfill(h.addr(), total)
	h.payloadSize = size
	h.flags = 0
	h.heapPrev, h.heapNext, h.binPrev, h.binNext = 0, 0, 0, 0

	if a.heapHead == 0 {
		a.heapHead = h.addr()
	} else {
		blockAt(a.heapTail).heapNext = h.addr()
		h.heapPrev = a.heapTail
	}
	a.heapTail = h.addr()
	return h
}

// splitForResize trims h down to payload size want if the remainder
// is worth keeping as its own free block, then merges that remainder
// with its physical successor if that neighbour is free too.
func (a *Arena) splitForResize(h *header, want int64) {
	if !isLargeEnough(h.payloadSize, want) {
		return
	}
	remainder := h.payloadSize - want - headerSize
	h.payloadSize = want

	nb := blockAt(h.addr() + uintptr(headerSize) + uintptr(want))
	nb.flags = 0
	nb.payloadSize = remainder
	nb.setFree(true)
	heapInsertAfter(h, nb)
	if a.heapTail == h.addr() {
		a.heapTail = nb.addr()
	}

	if next := nb.heapNextBlock(); next != nil && next.free() {
		a.freebins.remove(next)
		nb.payloadSize += headerSize + next.payloadSize
		if a.heapTail == next.addr() {
			a.heapTail = nb.addr()
		}
		heapUnlink(next)
	}

	a.freebins.insert(nb)
}

// mergeNext absorbs h's physical successor, which must be free, into
// h. The successor's header bytes become part of h's payload.
func (a *Arena) mergeNext(h *header) {
	next := h.heapNextBlock()
	a.freebins.remove(next)
	h.payloadSize += headerSize + next.payloadSize
	if a.heapTail == next.addr() {
		a.heapTail = h.addr()
	}
	heapUnlink(next)
}

// mergeIntoPrev absorbs h, which is in use, into its free physical
// predecessor prev, moving the first copyLen bytes of h's payload
// down to prev's payload. Returns prev, now marked in use.
func (a *Arena) mergeIntoPrev(prev, h *header, copyLen int64) *header {
	a.freebins.remove(prev)
	lib.Memcpy(unsafe.Pointer(prev.payload()), unsafe.Pointer(h.payload()), int(copyLen))
	prev.payloadSize += headerSize + h.payloadSize
	if a.heapTail == h.addr() {
		a.heapTail = prev.addr()
	}
	heapUnlink(h)
	prev.setFree(false)
	return prev
}

func (a *Arena) freeHeap(h *header) {
	h.setFree(true)

	if next := h.heapNextBlock(); next != nil && next.free() {
		a.freebins.remove(next)
		h.payloadSize += headerSize + next.payloadSize
		if a.heapTail == next.addr() {
			a.heapTail = h.addr()
		}
		heapUnlink(next)
	}
	if prev := h.heapPrevBlock(); prev != nil && prev.free() {
		a.freebins.remove(prev)
		prev.payloadSize += headerSize + h.payloadSize
		if a.heapTail == h.addr() {
			a.heapTail = prev.addr()
		}
		heapUnlink(h)
		h = prev
	}

	a.freebins.insert(h)
}

func (a *Arena) markUsed(h *header) {
	h.setFree(false)
	a.sizeavg.Add(h.payloadSize)
	a.sizehgm.Add(h.payloadSize)
}

//---- mmap list mechanics

func (a *Arena) allocateMmap(size int64) unsafe.Pointer {
	total := headerSize + size
	addr, err := a.mem.Map(total)
	if err != nil {
		warnf("%v allocateMmap(%v): %v: %v", a.logprefix, size, ErrExhausted, err)
		return nil
	}
	h := blockAt(uintptr(addr))
	h.flags = 0
	h.setMmap(true)
	h.payloadSize = size

	h.heapNext = a.mmapHead
	if a.mmapHead != 0 {
		blockAt(a.mmapHead).heapPrev = h.addr()
	}
	h.heapPrev = 0
	a.mmapHead = h.addr()

	a.sizeavg.Add(size)
	debugf("%v allocateMmap(%v) -> %p", a.logprefix, size, unsafe.Pointer(h.payload()))
	return unsafe.Pointer(h.payload())
}

func (a *Arena) freeMmap(h *header) {
	if h.heapPrev != 0 {
		blockAt(h.heapPrev).heapNext = h.heapNext
	} else {
		a.mmapHead = h.heapNext
	}
	if h.heapNext != 0 {
		blockAt(h.heapNext).heapPrev = h.heapPrev
	}
	total := headerSize + h.payloadSize
	if err := a.mem.Unmap(unsafe.Pointer(h), total); err != nil {
		errorf("%v freeMmap: %v", a.logprefix, err)
	}
}

//---- diagnostics, each computed by walking the heap list, and for the
//---- allocated counters the mmap list as well

// NumFreeBlocks counts free heap blocks.
func (a *Arena) NumFreeBlocks() int64 {
	n := int64(0)
	for addr := a.heapHead; addr != 0; addr = blockAt(addr).heapNext {
		if blockAt(addr).free() {
			n++
		}
	}
	return n
}

// NumFreeBytes sums payload_size over free heap blocks.
func (a *Arena) NumFreeBytes() int64 {
	n := int64(0)
	for addr := a.heapHead; addr != 0; addr = blockAt(addr).heapNext {
		if h := blockAt(addr); h.free() {
			n += h.payloadSize
		}
	}
	return n
}

// NumAllocatedBlocks counts all heap blocks, free or used, plus all
// mmap blocks.
func (a *Arena) NumAllocatedBlocks() int64 {
	n := int64(0)
	for addr := a.heapHead; addr != 0; addr = blockAt(addr).heapNext {
		n++
	}
	for addr := a.mmapHead; addr != 0; addr = blockAt(addr).heapNext {
		n++
	}
	return n
}

// NumAllocatedBytes sums payload_size over all heap and mmap blocks,
// free or used.
func (a *Arena) NumAllocatedBytes() int64 {
	n := int64(0)
	for addr := a.heapHead; addr != 0; addr = blockAt(addr).heapNext {
		n += blockAt(addr).payloadSize
	}
	for addr := a.mmapHead; addr != 0; addr = blockAt(addr).heapNext {
		n += blockAt(addr).payloadSize
	}
	return n
}

// NumMetaDataBytes is NumAllocatedBlocks() * header_size.
func (a *Arena) NumMetaDataBytes() int64 {
	return a.NumAllocatedBlocks() * headerSize
}

// SizeMetaData is the fixed size, in bytes, of one block header.
func (a *Arena) SizeMetaData() int64 {
	return headerSize
}

// Stats implements api.Allocator. It also folds in the allocation
// size average and histogram kept for operational visibility, beyond
// what the test harness's six enumerators require.
func (a *Arena) Stats() map[string]interface{} {
	return map[string]interface{}{
		"num_free_blocks":      a.NumFreeBlocks(),
		"num_free_bytes":       a.NumFreeBytes(),
		"num_allocated_blocks": a.NumAllocatedBlocks(),
		"num_allocated_bytes":  a.NumAllocatedBytes(),
		"num_meta_data_bytes":  a.NumMetaDataBytes(),
		"size_meta_data":       a.SizeMetaData(),
		"capacity":             a.capacity,
		"reserved":             a.mem.(*osmem.Provider).Reserved(),
		"used":                 a.mem.(*osmem.Provider).Used(),
		"size_avg":             a.sizeavg.Stats(),
		"sizes":                a.sizehgm.Fullstats(),
	}
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
