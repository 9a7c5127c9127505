package malloc

// Alignment every payload size this package carves out of the heap or
// hands to mmap is rounded up to.
const Alignment = int64(8)

func alignUp(size int64) int64 {
	if rem := size % Alignment; rem != 0 {
		return size + (Alignment - rem)
	}
	return size
}

// isLargeEnough reports whether splitting a block of `entire` payload
// bytes down to the `needed` bytes a request demands still leaves
// behind a block worth keeping: one with room for its own header plus
// splitMinPayload bytes of usable payload.
func isLargeEnough(entire, needed int64) bool {
	return entire >= needed+headerSize+splitMinPayload
}

var poisonpattern = make([]byte, 1024)

func init() {
	for i := 0; i < len(poisonpattern); i++ {
		poisonpattern[i] = 0xff
	}
}
