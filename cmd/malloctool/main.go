package main

import "fmt"
import "flag"
import "unsafe"

import s "github.com/bnclabs/gosettings"

import "github.com/Almogbs/Custom-Malloc-Implementations/lib"
import "github.com/Almogbs/Custom-Malloc-Implementations/malloc"

var options struct {
	capacity  int64
	threshold int64
	rounds    int
	maxsize   int64
}

func argParse() {
	flag.Int64Var(&options.capacity, "capacity", 64*1024*1024,
		"bytes the program-break region may grow to")
	flag.Int64Var(&options.threshold, "mmap-threshold", malloc.MmapThreshold,
		"payload size at or above which allocations are mmap'd")
	flag.IntVar(&options.rounds, "rounds", 10000,
		"number of allocate/free cycles to exercise")
	flag.Int64Var(&options.maxsize, "maxsize", 4096,
		"largest payload size a cycle allocates; reallocations may request up to twice this")
	flag.Parse()
}

func main() {
	argParse()
	malloc.LogComponents("malloc")

	setts := s.Settings{
		"capacity":       options.capacity,
		"mmap.threshold": options.threshold,
	}
	arena := malloc.NewArena(setts)

	exercise(arena)
	printstats(arena)
}

// exercise runs a simple allocate/reallocate/free workload and then
// frees every block it still holds, so the reported stats show the
// arena's free-block layout after the churn.
func exercise(arena *malloc.Arena) {
	uuid, _ := lib.Allocuuid(8)
	seed := int64(uuid[0])<<8 | int64(uuid[1])

	ptrs := make([]unsafe.Pointer, 0, options.rounds)
	for i := 0; i < options.rounds; i++ {
		seed = (seed*1103515245 + 12345) & 0x7fffffff
		size := 1 + seed%options.maxsize
		ptr := arena.Allocate(size)
		if ptr == nil {
			continue
		}
		ptrs = append(ptrs, ptr)

		if len(ptrs)%7 == 0 {
			seed = (seed*1103515245 + 12345) & 0x7fffffff
			newsize := 1 + seed%(options.maxsize*2)
			if grown := arena.Reallocate(ptrs[len(ptrs)-1], newsize); grown != nil {
				ptrs[len(ptrs)-1] = grown
			}
		}
		if len(ptrs) > 64 {
			arena.Free(ptrs[0])
			ptrs = ptrs[1:]
		}
	}
	for _, ptr := range ptrs {
		arena.Free(ptr)
	}
}

func printstats(arena *malloc.Arena) {
	stats := arena.Stats()
	fmt.Println(lib.Prettystats(stats, true))
}
