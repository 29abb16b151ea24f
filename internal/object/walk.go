package object

import "github.com/swiperlang/swipergc/internal/address"

// WalkRegion visits every object packed sequentially in region, in address
// order, from region.Start up to (but not including) region.End. Callers
// pass the *active* sub-region (e.g. [start, top)), not the full committed
// range, so the walk stops exactly at the last allocated object.
//
// This is the shared primitive behind the full collector's compute-forward,
// update-references, and relocate phases, which must all walk the same
// regions in the same address order.
func WalkRegion(region address.Region, visit func(h Header, addr address.Address, size uintptr)) {
	addr := region.Start

	for addr < region.End {
		h := HeaderAt(addr)
		size := h.Size()

		if size == 0 {
			panic("object: zero-size object during region walk")
		}

		visit(h, addr, size)
		addr = addr.Offset(size)
	}
}
