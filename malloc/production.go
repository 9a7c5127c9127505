// +build !debug

package malloc

// poisonfill is a no-op in production builds: the OS memory provider's
// Map already hands back zero-filled pages, and Extend's pages are
// zero-filled on first touch by the kernel, so stamping them again
// would only cost cycles.
func poisonfill(addr uintptr, size int64) {
}
