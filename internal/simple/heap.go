package simple

import (
	"sort"
	"sync"
	"unsafe"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/arena"
)

// freeRange is a disjoint, coalesced gap in the heap's single reservation.
// The collector frees objects individually rather than compacting them, so
// the heap needs a real per-object allocator: first-fit over a coalescing
// free list, the same shape the large object space uses.
type freeRange struct {
	start, end address.Address
}

func (r freeRange) size() uintptr {
	return r.end.OffsetFrom(r.start)
}

// heap is a single reserved, fully committed arena with a first-fit
// allocator over it.
type heap struct {
	mu   sync.Mutex
	free []freeRange
}

func newHeap(size uintptr) *heap {
	size = arena.PageAlign(size)
	start := arena.Reserve(size)
	arena.Commit(start, size, false)

	return &heap{free: []freeRange{{start: start, end: start.Offset(size)}}}
}

// alloc returns a zeroed block of size bytes, or the null address if no
// free range fits.
func (h *heap) alloc(size uintptr) address.Address {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, r := range h.free {
		if r.size() < size {
			continue
		}

		addr := r.start
		if r.size() == size {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = freeRange{start: r.start.Offset(size), end: r.end}
		}

		zero(addr, size)
		return addr
	}

	return address.Null
}

// free_ returns [addr, addr+size) to the free list, filling it with 0xcc
// first so a dangling read finds garbage rather than a half-alive object.
func (h *heap) free_(addr address.Address, size uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fill(addr, size, 0xcc)
	h.free = mergeFreeRanges(append(h.free, freeRange{start: addr, end: addr.Offset(size)}))
}

func mergeFreeRanges(ranges []freeRange) []freeRange {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })

	merged := ranges[:0]
	for _, r := range ranges {
		if n := len(merged); n > 0 && merged[n-1].end == r.start {
			merged[n-1].end = r.end
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func zero(addr address.Address, size uintptr) {
	fill(addr, size, 0)
}

func fill(addr address.Address, size uintptr, b byte) {
	buf := unsafe.Slice((*byte)(addr.ToPtr()), size)
	for i := range buf {
		buf[i] = b
	}
}
