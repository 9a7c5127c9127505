// Package osmem implements the two kernel interfaces the allocator draws
// raw address space from: a contiguous, one-way-growth reservation that
// stands in for a classic program-break extension, and an anonymous
// memory mapping primitive for large, independently releasable regions.
//
// A Go process does not own its own program break — the Go runtime does —
// so there is no `brk` to extend here. Provider instead reserves one
// large anonymous mapping upfront and bumps an offset inside it; every
// property spec.md asks of Extend (contiguous, one-way, returns the
// previous break) holds for a bump pointer inside a fixed reservation.
package osmem

import "fmt"
import "unsafe"

import "golang.org/x/sys/unix"

// ErrProcessExhausted is returned when either kernel interface cannot
// satisfy a request: the program-break reservation is full, or an
// anonymous mmap/munmap call failed.
var ErrProcessExhausted = fmt.Errorf("osmem.exhausted")

// Provider implements api.MemProvider.
type Provider struct {
	logprefix string
	capacity  int64
	region    []byte // backing store for the program-break reservation
	offset    int64  // bump pointer into region
}

// New reserves `capacity` bytes of anonymous memory up front to serve as
// the program-break region. The reservation itself costs only virtual
// address space; pages are committed by the kernel on first touch.
func New(logprefix string, capacity int64) (*Provider, error) {
	region, err := unix.Mmap(
		-1, 0, int(capacity),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		errorf("%v reserve %v bytes: %v", logprefix, capacity, err)
		return nil, ErrProcessExhausted
	}
	infof("%v reserved program-break region of %v bytes", logprefix, capacity)
	return &Provider{logprefix: logprefix, capacity: capacity, region: region}, nil
}

// Extend implements api.MemProvider. It never shrinks and never moves
// the region: a successful call always returns the address immediately
// after the previous call's region.
func (p *Provider) Extend(n int64) (unsafe.Pointer, error) {
	if n <= 0 {
		panic("osmem.Extend: n must be positive")
	}
	if p.offset+n > p.capacity {
		warnf("%v Extend(%v) exceeds reservation %v", p.logprefix, n, p.capacity)
		return nil, ErrProcessExhausted
	}
	ptr := unsafe.Pointer(&p.region[p.offset])
	p.offset += n
	debugf("%v Extend(%v), offset now %v", p.logprefix, n, p.offset)
	return ptr, nil
}

// Map obtains an independent anonymous region of exactly n bytes,
// zero-filled by kernel contract. Unlike Extend, this is a real,
// separately releasable mapping.
func (p *Provider) Map(n int64) (unsafe.Pointer, error) {
	b, err := unix.Mmap(
		-1, 0, int(n),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		errorf("%v Map(%v): %v", p.logprefix, n, err)
		return nil, ErrProcessExhausted
	}
	debugf("%v Map(%v) -> %p", p.logprefix, n, unsafe.Pointer(&b[0]))
	return unsafe.Pointer(&b[0]), nil
}

// Unmap releases a region previously returned by Map.
func (p *Provider) Unmap(addr unsafe.Pointer, n int64) error {
	b := unsafe.Slice((*byte)(addr), int(n))
	if err := unix.Munmap(b); err != nil {
		errorf("%v Unmap(%p, %v): %v", p.logprefix, addr, n, err)
		return ErrProcessExhausted
	}
	debugf("%v Unmap(%p, %v)", p.logprefix, addr, n)
	return nil
}

// Reserved returns the configured capacity of the program-break region.
func (p *Provider) Reserved() int64 {
	return p.capacity
}

// Used returns the number of bytes already handed out via Extend.
func (p *Provider) Used() int64 {
	return p.offset
}
