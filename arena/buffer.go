package arena

import "unsafe"

// alignSlice re-slices buf so the returned slice of length size starts on an
// align-byte address boundary. buf must hold at least size+align-1 bytes.
func alignSlice(buf []byte, size, align uintptr) []byte {
	base := uintptr(unsafe.Pointer(&buf[0]))
	off := (align - base%align) % align
	return buf[off : off+size : off+size]
}
