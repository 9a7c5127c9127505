// +build debug

package malloc

import "reflect"
import "unsafe"

// poisonfill stamps freshly carved OS memory with a recognizable byte
// pattern, in debug builds, so that reads of never-initialized payload
// stand out from legitimate zero-filled data.
func poisonfill(addr uintptr, size int64) {
	var dst []byte
	initsz := len(poisonpattern)
	sl := (*reflect.SliceHeader)(unsafe.Pointer(&dst))
	sl.Data, sl.Len = addr, initsz
	for i := int64(0); i < size/int64(initsz); i++ {
		copy(dst, poisonpattern)
		sl.Data = uintptr(uint64(sl.Data) + uint64(initsz))
	}
	if sl.Len = int(size) % len(poisonpattern); sl.Len > 0 {
		copy(dst, poisonpattern)
	}
}
