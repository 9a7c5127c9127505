// Package api defines the interfaces shared between the memory-management
// packages of this module.
package api

import "unsafe"

// Allocator is the contract implemented by malloc.Arena: a drop-in,
// single-threaded replacement for the four classic heap primitives plus
// a read-only diagnostics surface.
type Allocator interface {
	// Allocate a chunk of `size` bytes. Returns nil if size is 0, size
	// exceeds the configured cap, or the OS memory provider failed.
	Allocate(size int64) unsafe.Pointer

	// ZeroAllocate num*size bytes, zero-filled. Returns nil under the
	// same conditions as Allocate, plus overflow of num*size.
	ZeroAllocate(num, size int64) unsafe.Pointer

	// Free a pointer previously returned by Allocate/ZeroAllocate/
	// Reallocate. Freeing nil is a no-op. Freeing an already-free
	// pointer is a programming error, not detected.
	Free(ptr unsafe.Pointer)

	// Reallocate ptr to hold at least size bytes, preserving the first
	// min(size, old-size) bytes. A nil ptr behaves as Allocate(size).
	Reallocate(ptr unsafe.Pointer, size int64) unsafe.Pointer

	// Stats returns a snapshot of the diagnostic counters in §6.
	Stats() map[string]interface{}
}

// MemProvider abstracts the two kernel interfaces the allocator draws
// raw address space from.
type MemProvider interface {
	// Extend grows the contiguous, one-way-growth region by n bytes and
	// returns the address at which the new region starts.
	Extend(n int64) (unsafe.Pointer, error)

	// Map obtains a fresh, independently releasable anonymous region of
	// exactly n bytes, zero-filled.
	Map(n int64) (unsafe.Pointer, error)

	// Unmap releases a region previously returned by Map. Never called
	// on a region obtained from Extend.
	Unmap(addr unsafe.Pointer, n int64) error
}
