package malloc

import "unsafe"

// header sits immediately before every payload this package hands out,
// whether the block lives on the heap or inside its own mmap region.
// heapPrev/heapNext thread the ascending-address heap list; binPrev/
// binNext thread the size-sorted free list a heap block belongs to
// while free. mmap blocks never touch bin* and use heapPrev/heapNext
// to thread the unordered mmap list instead.
type header struct {
	payloadSize int64
	flags       int64 // bit 0: is-free, bit 1: is-mmap-backed
	heapPrev    uintptr
	heapNext    uintptr
	binPrev     uintptr
	binNext     uintptr
}

const (
	flagFree = int64(1) << 0
	flagMmap = int64(1) << 1
)

var headerSize = int64(unsafe.Sizeof(header{}))

func blockAt(addr uintptr) *header {
	return (*header)(unsafe.Pointer(addr))
}

func (h *header) addr() uintptr {
	return uintptr(unsafe.Pointer(h))
}

func (h *header) payload() uintptr {
	return h.addr() + uintptr(headerSize)
}

func payloadToHeader(ptr unsafe.Pointer) *header {
	return blockAt(uintptr(ptr) - uintptr(headerSize))
}

func (h *header) free() bool {
	return h.flags&flagFree != 0
}

func (h *header) setFree(v bool) {
	if v {
		h.flags |= flagFree
		return
	}
	h.flags &^= flagFree
}

func (h *header) mmap() bool {
	return h.flags&flagMmap != 0
}

func (h *header) setMmap(v bool) {
	if v {
		h.flags |= flagMmap
		return
	}
	h.flags &^= flagMmap
}

func (h *header) heapPrevBlock() *header {
	if h.heapPrev == 0 {
		return nil
	}
	return blockAt(h.heapPrev)
}

func (h *header) heapNextBlock() *header {
	if h.heapNext == 0 {
		return nil
	}
	return blockAt(h.heapNext)
}

func (h *header) binPrevBlock() *header {
	if h.binPrev == 0 {
		return nil
	}
	return blockAt(h.binPrev)
}

func (h *header) binNextBlock() *header {
	if h.binNext == 0 {
		return nil
	}
	return blockAt(h.binNext)
}

// totalSize is the number of bytes this block occupies in its list,
// header included.
func (h *header) totalSize() int64 {
	return headerSize + h.payloadSize
}

// heapInsertAfter links nb immediately after h in the ascending-address
// heap list. Callers are responsible for the address ordering; this
// only patches the links.
func heapInsertAfter(h, nb *header) {
	nb.heapNext = h.heapNext
	nb.heapPrev = h.addr()
	if h.heapNext != 0 {
		h.heapNextBlock().heapPrev = nb.addr()
	}
	h.heapNext = nb.addr()
}

// heapUnlink removes h from the ascending-address heap list without
// touching its own link fields, which the caller may still need to
// read (e.g. to relocate a wilderness pointer).
func heapUnlink(h *header) {
	if h.heapPrev != 0 {
		h.heapPrevBlock().heapNext = h.heapNext
	}
	if h.heapNext != 0 {
		h.heapNextBlock().heapPrev = h.heapPrev
	}
}
