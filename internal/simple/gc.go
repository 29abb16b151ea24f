// Package simple implements the non-generational collector: an intrusive
// singly-linked object list, swept by walking the list once and comparing
// each header's mark bit against a colour that flips every cycle, so no
// separate unmark pass is ever needed.
package simple

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/gcconfig"
	"github.com/swiperlang/swipergc/internal/gclog"
	"github.com/swiperlang/swipergc/internal/gcstats"
	"github.com/swiperlang/swipergc/internal/object"
)

func fatal(format string, args ...interface{}) {
	panic(fmt.Sprintf("swipergc: "+format, args...))
}

// RootsFunc supplies the addresses the collector must treat as always-live
// at the moment a cycle runs: the live stack's rootset, or the literal
// pool. Injected as a closure rather than read off an ambient context,
// since this package has no JIT/runtime of its own to ask.
type RootsFunc func() []address.Address

// Gc is the simple collector's whole state: one intrusive object list plus
// the allocation threshold that decides when a cycle runs.
type Gc struct {
	mu   sync.Mutex
	heap *heap

	headAddr, tailAddr address.Address
	bytesAllocated     uintptr
	threshold          uintptr
	curMarked          bool

	rootsetFn  RootsFunc
	literalsFn RootsFunc

	flags    gcconfig.Flags
	log      *gclog.Logger
	counters *gcstats.Counters
}

// New builds a Gc over a freshly reserved heap of heapSize bytes.
// rootsetFn/literalsFn are called once per collection cycle, never cached
// across allocations: the caller owns stack-walking and the literal pool.
func New(heapSize uintptr, rootsetFn, literalsFn RootsFunc, flags gcconfig.Flags, log *gclog.Logger, counters *gcstats.Counters) *Gc {
	if log == nil {
		log = gclog.New(flags, nil)
	}
	if counters == nil {
		counters = &gcstats.Counters{}
	}

	return &Gc{
		heap:       newHeap(heapSize),
		curMarked:  true,
		threshold:  gcconfig.DefaultInitialThreshold,
		rootsetFn:  rootsetFn,
		literalsFn: literalsFn,
		flags:      flags,
		log:        log,
		counters:   counters,
	}
}

// Alloc allocates size bytes, stamps the object with classID, links it
// onto the intrusive list, and returns its address. May trigger a
// collection first, per the gc-stress tunable or the allocation threshold.
func (g *Gc) Alloc(size uintptr, classID object.ClassID) address.Address {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.flags.GCStress {
		g.collectLocked()
	} else if g.bytesAllocated+size > g.threshold {
		g.collectLocked()

		if float64(g.bytesAllocated+size) > float64(g.threshold)*gcconfig.DefaultUsedRatio {
			saved := g.threshold
			g.threshold = uintptr(float64(g.threshold) / gcconfig.DefaultUsedRatio)
			g.log.Dump("gc: increase threshold",
				zap.Uint64("from", uint64(saved)),
				zap.Uint64("to", uint64(g.threshold)),
			)
		}
	}

	addr := g.heap.alloc(size)
	if addr.IsNull() {
		fatal("simple gc: heap exhausted allocating %d bytes", size)
	}

	object.HeaderAt(addr).SetClassID(classID)

	if g.tailAddr.IsNull() {
		g.headAddr = addr
	} else {
		object.HeaderAt(g.tailAddr).SetSucc(addr)
	}
	g.tailAddr = addr

	g.bytesAllocated += size
	g.counters.RecordAllocation(size)

	return addr
}

// Collect runs one mark-sweep cycle unconditionally.
func (g *Gc) Collect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.collectLocked()
}

func (g *Gc) collectLocked() {
	timer := gcstats.NewTimer(g.log.StatsEnabled())

	markRoots(g.literalsFn(), g.curMarked)
	markRoots(g.rootsetFn(), g.curMarked)

	curMarked := g.curMarked
	g.sweep(curMarked)

	// flip colour: survivors keep whatever mark value markRecursive just
	// wrote, so next cycle's sweep can tell "live under the new colour"
	// from "stale from the old one" without an unmark pass.
	g.curMarked = !g.curMarked
	g.counters.Collections++

	timer.StopWith(func(dur time.Duration) {
		g.counters.CollectDuration += dur
		g.log.Cycle("collect", dur)
	})
}

func markRoots(roots []address.Address, curMarked bool) {
	for _, r := range roots {
		markRecursive(r, curMarked)
	}
}

// markRecursive walks the object graph from root with an explicit stack,
// flipping each unvisited object's mark bit to curMarked. An object is
// pushed only the first time its mark bit doesn't already match curMarked,
// so cycles terminate without a separate visited set.
func markRecursive(root address.Address, curMarked bool) {
	if root.IsNull() {
		return
	}

	stack := []address.Address{root}

	for len(stack) > 0 {
		addr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		h := object.HeaderAt(addr)
		if h.IsMarkedNonAtomic() == curMarked {
			continue
		}
		setMarked(h, curMarked)

		h.VisitReferenceFields(func(slot object.Slot) {
			if target := slot.Get(); !target.IsNull() {
				stack = append(stack, target)
			}
		})
	}
}

func setMarked(h object.Header, v bool) {
	if v {
		h.MarkNonAtomic()
	} else {
		h.UnmarkNonAtomic()
	}
}

// sweep walks the intrusive list once, freeing every object whose mark bit
// doesn't match curMarked and relinking the survivors in place.
func (g *Gc) sweep(curMarked bool) {
	addr := g.headAddr
	last := address.Null

	for !addr.IsNull() {
		h := object.HeaderAt(addr)
		succ := h.Succ()
		size := h.Size()

		if h.IsMarkedNonAtomic() != curMarked {
			g.heap.free_(addr, size)
			g.bytesAllocated -= size
		} else {
			if last.IsNull() {
				g.headAddr = addr
			} else {
				object.HeaderAt(last).SetSucc(addr)
			}
			last = addr
		}

		addr = succ
	}

	if last.IsNull() {
		g.headAddr = address.Null
	} else {
		object.HeaderAt(last).SetSucc(address.Null)
	}
	g.tailAddr = last
}
