package malloc

import "errors"
import "fmt"

// ErrInvalidSize is logged, never returned, when a caller asks for a
// size of zero or above MaxAllocSize. The public API surfaces this as
// a nil pointer, per the null-sentinel convention the four allocator
// primitives share.
var ErrInvalidSize = errors.New("malloc.invalidsize")

// ErrExhausted is logged, never returned, when the OS memory provider
// cannot satisfy an Extend or Map request.
var ErrExhausted = errors.New("malloc.exhausted")

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
