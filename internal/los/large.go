// Package los implements the large object space: objects at or above the
// large-object threshold, allocated at page granularity on a doubly-linked
// list threaded through each allocation's own prefix record, backed by a
// coalescing free-range list.
package los

import (
	"sync"
	"unsafe"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/arena"
	"github.com/swiperlang/swipergc/internal/heapconfig"
)

// largeAllocRaw is the prefix every large allocation carries, threaded in
// allocation order at the head of LargeSpace's list. Doubly-linked so
// mid-list removal during sweep is O(1).
type largeAllocRaw struct {
	prev, next address.Address
	size       uintptr
}

// HeaderSize is the byte length of the LargeAlloc prefix record.
var HeaderSize = unsafe.Sizeof(largeAllocRaw{})

func largeAllocAt(addr address.Address) *largeAllocRaw {
	return (*largeAllocRaw)(addr.ToPtr())
}

// ObjectAddress returns the address just past allocAddr's prefix record,
// the address Alloc hands back to the caller.
func ObjectAddress(allocAddr address.Address) address.Address {
	return allocAddr.Offset(HeaderSize)
}

// LargeSpace manages every object at or above the large-object threshold.
// The reserved range [total.Start, total.End) is carved up into committed
// allocations and free ranges; nothing in the range is ever both.
type LargeSpace struct {
	total      address.Region
	controller *heapconfig.Controller

	mu            sync.Mutex
	elements      []freeRange
	head          address.Address
	committedSize uintptr
}

// NewLargeSpace builds a large object space over the already-reserved
// (not yet committed) range [start, end), sharing controller with the old
// generation for heap-growth accounting.
func NewLargeSpace(start, end address.Address, controller *heapconfig.Controller) *LargeSpace {
	return &LargeSpace{
		total:      address.NewRegion(start, end),
		controller: controller,
		elements:   []freeRange{newFreeRange(start, end)},
	}
}

// Total returns the large object space's full reserved extent.
func (l *LargeSpace) Total() address.Region {
	return l.total
}

// Contains reports whether addr lies anywhere in the reserved extent
// (whether currently free or allocated).
func (l *LargeSpace) Contains(addr address.Address) bool {
	return l.total.Contains(addr)
}

// Head returns the head of the live-allocation list, or the null address
// if the space is empty.
func (l *LargeSpace) Head() address.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head
}

// CommittedSize returns the sum of sizes of currently-committed
// allocations.
func (l *LargeSpace) CommittedSize() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.committedSize
}

// Alloc rounds HeaderSize+size up to a page, reserves a fitting free range
// (first-fit), commits it, splices a prefix record at its start, prepends
// it to the live list, and returns the address just past the record.
// Returns the null address if no fitting range exists or the shared
// heap-growth controller refuses growth; both are recovered locally by
// the mutator, never fatal.
func (l *LargeSpace) Alloc(size uintptr) address.Address {
	total := arena.PageAlign(HeaderSize + size)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.controller.GrowLarge(total) {
		return address.Null
	}

	for i, r := range l.elements {
		if r.size() < total {
			continue
		}

		addr := r.start
		if r.size() == total {
			l.elements = append(l.elements[:i], l.elements[i+1:]...)
		} else {
			l.elements[i] = newFreeRange(r.start.Offset(total), r.end)
		}

		arena.Commit(addr, total, false)
		l.prepend(addr, total)
		l.committedSize += total

		return ObjectAddress(addr)
	}

	// No fitting free range: the virtual reservation itself is exhausted.
	l.controller.ShrinkLarge(total)
	return address.Null
}

func (l *LargeSpace) prepend(addr address.Address, size uintptr) {
	if !l.head.IsNull() {
		largeAllocAt(l.head).prev = addr
	}

	rec := largeAllocAt(addr)
	rec.next = l.head
	rec.prev = address.Null
	rec.size = size

	l.head = addr
}

// VisitObjects invokes f(objectAddress) for every live allocation, head to
// tail.
func (l *LargeSpace) VisitObjects(f func(address.Address)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	addr := l.head
	for !addr.IsNull() {
		rec := largeAllocAt(addr)
		f(ObjectAddress(addr))
		addr = rec.next
	}
}

// RemoveObjects invokes f(objectAddress) for each live allocation; when f
// returns false, its pages are decommitted, a free range covering it is
// pushed, and it is dropped from the list. If any allocation was freed,
// the free list is merged afterward.
func (l *LargeSpace) RemoveObjects(f func(address.Address) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	addr := l.head
	prev := address.Null
	freed := false

	for !addr.IsNull() {
		rec := largeAllocAt(addr)
		next := rec.next
		keep := f(ObjectAddress(addr))

		if keep {
			if prev.IsNull() {
				l.head = addr
			} else {
				largeAllocAt(prev).next = addr
			}
			rec.prev = prev
			prev = addr
		} else {
			freed = true
			l.free(addr, rec.size)
		}

		addr = next
	}

	if prev.IsNull() {
		l.head = address.Null
	} else {
		largeAllocAt(prev).next = address.Null
	}

	if freed {
		l.elements = mergeFreeRanges(l.elements)
	}
}

func (l *LargeSpace) free(addr address.Address, size uintptr) {
	arena.Forget(addr, size)
	l.elements = append(l.elements, newFreeRange(addr, addr.Offset(size)))
	l.committedSize -= size
	l.controller.ShrinkLarge(size)
}

// FreeRangeCount exposes the number of disjoint free ranges, for tests
// verifying that the free list coalesces after sweep.
func (l *LargeSpace) FreeRangeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.elements)
}

// FreeRangeSize returns the size of the i-th free range, for tests.
func (l *LargeSpace) FreeRangeSize(i int) uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.elements[i].size()
}
