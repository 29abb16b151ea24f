package full

import (
	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/los"
	"github.com/swiperlang/swipergc/internal/object"
	"github.com/swiperlang/swipergc/internal/oldgen"
	"github.com/swiperlang/swipergc/internal/younggen"
)

// VerifyMarking is the optional phase-1.5 pass gated on the gc-verify
// tunable: every reference field of a marked object must itself point at a
// marked object (or outside the heap entirely). A violation means markLive
// missed an edge, and is fatal rather than silently tolerated: the
// relocation phases that follow trust the mark bits completely.
func VerifyMarking(young *younggen.Gen, old *oldgen.Protected, large *los.LargeSpace, heap address.Region) {
	checkField := func(owner address.Address, target address.Address) {
		if target.IsNull() {
			return
		}
		if !heap.Contains(target) && !large.Contains(target) {
			return
		}
		if !object.HeaderAt(target).IsMarkedNonAtomic() {
			fatal("verify marking: object %v is marked but points at unmarked %v", owner, target)
		}
	}

	verify := func(h object.Header, addr address.Address, _ uintptr) {
		if !h.IsMarkedNonAtomic() {
			return
		}

		h.VisitReferenceFields(func(slot object.Slot) {
			checkField(addr, slot.Get())
		})
	}

	for _, r := range old.Regions() {
		object.WalkRegion(r.ActiveRegion(), verify)
	}

	object.WalkRegion(young.EdenActive(), verify)
	object.WalkRegion(young.FromActive(), verify)
	object.WalkRegion(young.ToActive(), verify)

	large.VisitObjects(func(objAddr address.Address) {
		h := object.HeaderAt(objAddr)
		if !h.IsMarkedNonAtomic() {
			return
		}

		h.VisitReferenceFields(func(slot object.Slot) {
			checkField(objAddr, slot.Get())
		})
	})
}
