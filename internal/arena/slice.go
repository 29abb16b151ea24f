package arena

import (
	"unsafe"

	"github.com/swiperlang/swipergc/internal/address"
)

// sliceBase returns the address of the first byte of an mmap-returned
// slice. The slice's backing memory is never touched by the host Go
// runtime's allocator (it came from unix.Mmap, not make), so taking its
// address and discarding the slice header is safe: nothing else holds (or
// needs) a Go-visible reference to it.
func sliceBase(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// addrSlice reinterprets [addr, addr+size) as a []byte for passing to
// golang.org/x/sys/unix calls that operate on byte slices.
func addrSlice(addr address.Address, size uintptr) []byte {
	return unsafe.Slice((*byte)(addr.ToPtr()), size)
}
