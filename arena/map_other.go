//go:build !linux && !darwin

package arena

import "os"

// mapMemory allocates the arena from the Go heap on platforms without an
// anonymous mmap path. The buffer is over-allocated and re-sliced to a page
// boundary so the base address alignment matches the mmap path; allocators
// align offsets, so alignment guarantees stronger than 8 bytes only hold
// when the base itself is page aligned.
func mapMemory(size int) ([]byte, bool, error) {
	page := uintptr(os.Getpagesize())
	buf := make([]byte, uintptr(size)+page-1)
	return alignSlice(buf, uintptr(size), page), false, nil
}

func unmapMemory(data []byte, mapped bool) error {
	return nil
}
