// Package malloc implements a single-threaded, general-purpose dynamic
// memory allocator modelled on the classic heap-list-plus-free-bins
// design: payloads below the mmap threshold are carved out of one
// contiguous, ascending-address heap maintained by splitting and
// coalescing free blocks; payloads at or above the threshold are
// backed by their own anonymous mapping and never split, merged, or
// binned.
//
// Arena is the type applications use. It exposes Allocate, ZeroAllocate,
// Free and Reallocate — each returns a nil unsafe.Pointer on any
// failure (bad size, or the OS memory provider is exhausted) rather
// than a Go error, matching the C heap APIs this package stands in
// for. Arena is not safe for concurrent use; callers that need
// concurrent allocation should shard across multiple Arenas or guard
// a single Arena with a mutex.
package malloc
