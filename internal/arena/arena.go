// Package arena reserves large virtual address ranges up front and commits
// or decommits physical pages on demand, the substrate every other heap
// component (old generation, large object space, young generation) is
// built on.
package arena

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/swiperlang/swipergc/internal/address"
)

// PageSize is the granularity at which Commit/Forget operate. All sizes
// passed to Commit/Forget must be page-aligned.
var PageSize = uintptr(unix.Getpagesize())

// PageAlign rounds n up to the next multiple of PageSize.
func PageAlign(n uintptr) uintptr {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// IsPageAligned reports whether n is already a multiple of PageSize.
func IsPageAligned(n uintptr) bool {
	return n%PageSize == 0
}

func fatal(format string, args ...interface{}) {
	panic(fmt.Sprintf("swipergc: "+format, args...))
}

// Reserve obtains a virtual range of size bytes with no backing physical
// memory (PROT_NONE). size must be page-aligned. The returned address is
// never null; a failure to reserve is fatal, matching the full collector's
// treatment of page-layer failures.
func Reserve(size uintptr) address.Address {
	if !IsPageAligned(size) {
		fatal("arena: Reserve size %d is not page-aligned", size)
	}

	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		fatal("arena: reserve of %d bytes failed: %v", size, err)
	}

	return address.FromPtr(sliceBase(data))
}

// Commit backs [addr, addr+size) with physical memory, making it readable
// and writable (and, if executable is true, executable). size must be
// page-aligned and the range must already have been reserved. Fails
// fatally if the OS refuses.
func Commit(addr address.Address, size uintptr, executable bool) {
	if !IsPageAligned(size) {
		fatal("arena: Commit size %d is not page-aligned", size)
	}

	prot := unix.PROT_READ | unix.PROT_WRITE
	if executable {
		prot |= unix.PROT_EXEC
	}

	if err := unix.Mprotect(addrSlice(addr, size), prot); err != nil {
		fatal("arena: commit of %d bytes at %v failed: %v", size, addr, err)
	}
}

// Forget releases the backing physical pages of [addr, addr+size) while
// keeping the virtual reservation intact, so a later Commit over the same
// range succeeds without a fresh Reserve. size must be page-aligned.
func Forget(addr address.Address, size uintptr) {
	if !IsPageAligned(size) {
		fatal("arena: Forget size %d is not page-aligned", size)
	}

	if err := unix.Mprotect(addrSlice(addr, size), unix.PROT_NONE); err != nil {
		fatal("arena: forget (reprotect) of %d bytes at %v failed: %v", size, addr, err)
	}

	if err := unix.Madvise(addrSlice(addr, size), unix.MADV_DONTNEED); err != nil {
		fatal("arena: forget (madvise) of %d bytes at %v failed: %v", size, addr, err)
	}
}
