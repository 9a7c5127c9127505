package malloc

import "fmt"

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// MmapThreshold default value for the "mmap.threshold" setting:
// payloads at or above this many bytes bypass the heap entirely and
// are served by their own anonymous mapping.
const MmapThreshold = int64(128 * 1024)

// MaxAllocSize no single call to Allocate, ZeroAllocate or Reallocate
// may request more payload bytes than this, regardless of capacity.
const MaxAllocSize = int64(100 * 1000 * 1000)

// splitMinPayload the smallest payload, in bytes, worth leaving
// behind as its own free block when a larger block is split to
// satisfy a request. Remainders smaller than this are handed out as
// part of the allocation instead of split off.
const splitMinPayload = int64(128)

// Maxarenasize maximum size of a memory arena. Can be used as default
// capacity for NewArena().
const Maxarenasize = int64(1024 * 1024 * 1024 * 1024) // 1TB

// Defaultsettings for a new Arena.
//
// "capacity" (int64, default: 1/4 of free system RAM, capped at Maxarenasize)
//		Total bytes the program-break region may grow to. Exceeding
//		it fails allocations the same way the OS running out of
//		memory would.
//
// "mmap.threshold" (int64, default: MmapThreshold)
//		Payloads at or above this size are mmap'd individually
//		instead of carved out of the heap.
//
// "log.level" (string, default: "ignore")
//		Carried in the settings only; NewArena does not read it and
//		does not pass it to golog.
func Defaultsettings() s.Settings {
	_, _, free := getsysmem()
	capacity := int64(free / 4)
	if capacity <= 0 {
		capacity = 256 * 1024 * 1024
	}
	if capacity > Maxarenasize {
		capacity = Maxarenasize
	}
	return s.Settings{
		"capacity":       capacity,
		"mmap.threshold": MmapThreshold,
		"log.level":      "ignore",
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	return mem.Total, mem.Used, mem.Free
}

func validatesettings(setts s.Settings) {
	capacity := setts.Int64("capacity")
	threshold := setts.Int64("mmap.threshold")
	if capacity <= 0 {
		panic(fmt.Errorf("malloc: capacity must be positive, got %v", capacity))
	} else if threshold <= 0 {
		panic(fmt.Errorf("malloc: mmap.threshold must be positive, got %v", threshold))
	}
}
