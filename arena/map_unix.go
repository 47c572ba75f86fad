//go:build linux || darwin

package arena

import (
	"golang.org/x/sys/unix"
)

// mapMemory reserves size bytes of anonymous private memory. The mapping is
// page aligned, which keeps every 8-byte-aligned arena offset safe for
// 64-bit atomic access.
func mapMemory(size int) ([]byte, bool, error) {
	data, err := unix.Mmap(
		-1,
		0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func unmapMemory(data []byte, mapped bool) error {
	if !mapped {
		return nil
	}
	return unix.Munmap(data)
}
