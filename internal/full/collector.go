// Package full implements the major/full mark-compact collector: the
// orchestrator that drives mark -> compute-forward -> update-refs ->
// relocate -> LOS-sweep -> card-reset under a stop-the-world barrier.
package full

import (
	"fmt"
	"time"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/cardtable"
	"github.com/swiperlang/swipergc/internal/gcconfig"
	"github.com/swiperlang/swipergc/internal/gclog"
	"github.com/swiperlang/swipergc/internal/gcstats"
	"github.com/swiperlang/swipergc/internal/los"
	"github.com/swiperlang/swipergc/internal/object"
	"github.com/swiperlang/swipergc/internal/oldgen"
	"github.com/swiperlang/swipergc/internal/younggen"
)

func fatal(format string, args ...interface{}) {
	panic(fmt.Sprintf("swipergc: "+format, args...))
}

// Reason records why a collection cycle was triggered, for logging.
type Reason string

const (
	ReasonAllocFailure Reason = "alloc-failure"
	ReasonForced       Reason = "forced"
	ReasonStress       Reason = "stress"
)

// Collector is the full collector's per-cycle state. A new Collector is
// constructed for every cycle and borrows everything it needs for exactly
// one Collect call.
type Collector struct {
	heap      address.Region
	young     *younggen.Gen
	old       *oldgen.OldGen
	large     *los.LargeSpace
	cardTable *cardtable.CardTable
	crossing  *cardtable.CrossingMap
	permSpace address.Region
	rootset   []object.Slot

	oldProtected *oldgen.Protected
	oldTop       address.Address
	oldLimit     address.Address
	oldCommitted address.Region
	initOldTop   []address.Address

	reason Reason
	flags  gcconfig.Flags
	log    *gclog.Logger
	stats  *gcstats.Counters

	minHeapSize, maxHeapSize uintptr
}

// Config bundles everything NewCollector needs to borrow for one cycle.
type Config struct {
	Heap      address.Region
	Young     *younggen.Gen
	Old       *oldgen.OldGen
	Large     *los.LargeSpace
	PermSpace address.Region
	Rootset   []object.Slot
	Reason    Reason

	Flags       gcconfig.Flags
	Log         *gclog.Logger
	Stats       *gcstats.Counters
	MinHeapSize uintptr
	MaxHeapSize uintptr
}

// NewCollector locks the old generation (held for the whole cycle) and
// prepares a collector ready to run Collect.
func NewCollector(cfg Config) *Collector {
	protected := cfg.Old.Protected()
	total := protected.Regions()[0].Total()

	return &Collector{
		heap:         cfg.Heap,
		young:        cfg.Young,
		old:          cfg.Old,
		large:        cfg.Large,
		cardTable:    cfg.Old.CardTable(),
		crossing:     cfg.Old.CrossingMap(),
		permSpace:    cfg.PermSpace,
		rootset:      cfg.Rootset,
		oldProtected: protected,
		oldTop:       total.Start,
		oldLimit:     total.End,
		reason:       cfg.Reason,
		flags:        cfg.Flags,
		log:          cfg.Log,
		stats:        cfg.Stats,
		minHeapSize:  cfg.MinHeapSize,
		maxHeapSize:  cfg.MaxHeapSize,
	}
}

// Collect runs the six phases to completion. The caller must already have
// the mutator parked at safepoints: Collect itself never yields.
func (c *Collector) Collect() {
	defer c.oldProtected.Unlock()

	timer := gcstats.NewTimer(c.log.StatsEnabled())

	for _, r := range c.oldProtected.Regions() {
		c.initOldTop = append(c.initOldTop, r.Top())
	}

	c.log.Phase("full gc: phase 1 (marking)")
	c.markLive()

	if c.flags.GCVerify {
		c.log.Phase("full gc: phase 1 (verify marking start)")
		VerifyMarking(c.young, c.oldProtected, c.large, c.heap)
		c.log.Phase("full gc: phase 1 (verify marking end)")
	}

	c.log.Phase("full gc: phase 2 (compute forward)")
	c.computeForward()

	c.log.Phase("full gc: phase 3 (update refs)")
	c.updateReferences()

	c.log.Phase("full gc: phase 4 (relocate)")
	c.relocate()

	c.log.Phase("full gc: phase 5 (large objects)")
	c.updateLargeObjects()

	c.log.Phase("full gc: phase 6 (reset cards)")
	c.resetCards()

	c.young.Clear()
	c.young.ProtectTo()

	c.oldProtected.UpdateSingleRegion(c.oldTop)

	if c.stats != nil {
		c.stats.Collections++
	}

	timer.StopWith(func(dur time.Duration) {
		if c.stats != nil {
			c.stats.CollectDuration += dur
		}
		c.log.Cycle(string(c.reason), dur)
	})
}

// markLive is phase 1. An explicit marking stack bounds extra memory use
// independent of object-graph depth and handles cycles: a node is pushed
// only once, exactly when its mark bit flips from unset to set.
func (c *Collector) markLive() {
	var stack []address.Address

	mark := func(target address.Address) {
		if !c.heap.Contains(target) && !c.large.Contains(target) {
			if !target.IsNull() && !c.permSpace.Contains(target) {
				fatal("reference %v points outside heap, large space, and perm space", target)
			}
			return
		}

		h := object.HeaderAt(target)
		if !h.IsMarkedNonAtomic() {
			h.MarkNonAtomic()
			stack = append(stack, target)
		}
	}

	for _, root := range c.rootset {
		mark(root.Get())
	}

	for len(stack) > 0 {
		addr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		object.HeaderAt(addr).VisitReferenceFields(func(field object.Slot) {
			mark(field.Get())
		})
	}
}

// computeForward is phase 2: bump-allocate forwarding addresses for every
// marked object, walking old-then-young regions in address order.
func (c *Collector) computeForward() {
	c.walkOldAndYoung(func(h object.Header, _ address.Address, size uintptr) {
		if h.IsMarkedNonAtomic() {
			fwd := c.allocate(size)
			h.SetFwdptrNonAtomic(fwd)
		}
	})

	c.oldProtected.CommitSingleRegion(c.oldTop)
	c.oldCommitted = address.NewRegion(c.old.TotalStart(), c.oldTop)
}

// updateReferences is phase 3: rewrite every reference (in marked objects,
// in roots, and in marked LOS objects' outgoing fields) to the target's
// forwarding address.
func (c *Collector) updateReferences() {
	c.walkOldAndYoung(func(h object.Header, _ address.Address, _ uintptr) {
		if h.IsMarkedNonAtomic() {
			h.VisitReferenceFields(c.forwardReference)
		}
	})

	for _, root := range c.rootset {
		c.forwardReference(root)
	}

	c.large.VisitObjects(func(objAddr address.Address) {
		h := object.HeaderAt(objAddr)
		if h.IsMarkedNonAtomic() {
			h.VisitReferenceFields(c.forwardReference)
		}
	})
}

// relocate is phase 4: copy every marked object to its forwarding address,
// unmark the destination, and record crossing-map entries for it.
func (c *Collector) relocate() {
	c.crossing.SetFirstObject(0, cardtable.NoFirstObject)

	c.walkOldAndYoung(func(h object.Header, addr address.Address, size uintptr) {
		if !h.IsMarkedNonAtomic() {
			return
		}

		dest := h.FwdptrNonAtomic()
		if !c.oldCommitted.Contains(dest) {
			fatal("forwarding address %v outside committed old generation", dest)
		}

		nextDest := dest.Offset(size)
		if !c.oldCommitted.ValidTop(nextDest) {
			fatal("relocated object end %v exceeds committed old generation", nextDest)
		}

		if addr != dest {
			h.CopyTo(dest, size)
		}

		destHeader := object.HeaderAt(dest)
		destHeader.UnmarkNonAtomic()

		c.oldProtected.UpdateCrossing(dest, nextDest, destHeader.IsArrayRef())
	})
}

// updateLargeObjects is phase 5: sweep the large object space. Dead cards
// are reset regardless of liveness; survivors are unmarked for the next
// cycle.
func (c *Collector) updateLargeObjects() {
	c.large.RemoveObjects(func(objAddr address.Address) bool {
		h := object.HeaderAt(objAddr)

		if h.IsArrayRef() {
			c.cardTable.ResetRegion(objAddr, objAddr.Offset(h.Size()))
		} else {
			c.cardTable.ResetAddr(objAddr)
		}

		if !h.IsMarkedNonAtomic() {
			return false
		}

		h.UnmarkNonAtomic()
		return true
	})
}

// resetCards is phase 6: clean every card over the union of each region's
// pre- and post-cycle top, since mark-compact has restored precise
// generational invariants across that whole span.
func (c *Collector) resetCards() {
	for i, r := range c.oldProtected.Regions() {
		top := r.Top()
		if c.initOldTop[i].OffsetFrom(r.Start()) > top.OffsetFrom(r.Start()) {
			top = c.initOldTop[i]
		}
		c.cardTable.ResetRegion(r.Start(), top)
	}
}

// forwardReference implements the rewrite rule shared by phase 3's walk,
// its root pass, and its LOS pass.
func (c *Collector) forwardReference(slot object.Slot) {
	target := slot.Get()

	if !c.heap.Contains(target) {
		return // null or perm space: left alone
	}

	if c.large.Contains(target) {
		return // large objects never move
	}

	fwd := object.HeaderAt(target).FwdptrNonAtomic()
	if !c.heap.Contains(fwd) {
		fatal("forwarding address %v for %v is outside the heap", fwd, target)
	}
	slot.Set(fwd)
}

// walkOldAndYoung visits old-gen regions (in order), then young eden, then
// young from, then young to: the exact order computeForward,
// updateReferences, and relocate all share. Violating this order would
// corrupt the heap: objects compact downward and must never be
// overwritten before they have themselves been relocated.
func (c *Collector) walkOldAndYoung(visit func(object.Header, address.Address, uintptr)) {
	for _, r := range c.oldProtected.Regions() {
		object.WalkRegion(r.ActiveRegion(), visit)
	}

	object.WalkRegion(c.young.EdenActive(), visit)
	object.WalkRegion(c.young.FromActive(), visit)
	object.WalkRegion(c.young.ToActive(), visit)
}

func (c *Collector) allocate(size uintptr) address.Address {
	addr := c.oldTop
	next := addr.Offset(size)

	if !address.NewRegion(addr, c.oldLimit).ValidTop(next) {
		fatal("not enough space for objects in old generation")
	}

	c.oldTop = next
	return addr
}

// OldTop exposes the bump pointer after a finished cycle, for tests and
// for the mutator to query how much headroom remains.
func (c *Collector) OldTop() address.Address {
	return c.oldTop
}
