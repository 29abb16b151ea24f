package gcroot

import (
	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/object"
)

// SafepointFrameInfo is the pre-filled safepoint record the JIT-emitted
// epilogue populates before transferring control to the collector: the
// return address and frame pointer of the topmost managed frame. Both
// runtime configurations feed the walker through this same struct; the
// walker itself never reads live registers, which would take JIT-emitted
// assembly the collector does not own.
type SafepointFrameInfo struct {
	RA address.Address
	FP address.Address
}

// Walk climbs the saved frame-pointer chain starting at sfi, consulting
// codeMap and each frame's gcpoint table to collect every live root slot:
//
//  1. Look up the enclosing function by PC. Absent means a non-managed
//     frame was reached; the walk stops there (not fatal).
//  2. Non-Source functions mid-walk are fatal: the collector cannot walk
//     through a frame it does not have a gcpoint table for.
//  3. Missing gcpoint at a PC inside a Source function's code range is
//     fatal: the JIT must emit one at every call site and safepoint.
//  4. Each gcpoint offset names a stack slot at fp+offset; its contents
//     (another address) is the root.
func Walk(codeMap *CodeMap, sfi *SafepointFrameInfo) []object.Slot {
	var rootset []object.Slot

	pc := sfi.RA
	fp := sfi.FP

	for !fp.IsNull() {
		fn, ok := codeMap.Lookup(pc)
		if !ok {
			break
		}

		if fn.Kind != FctSource {
			fatal("rootset walk reached non-Source frame (function %d, kind %s)", fn.ID, fn.Kind)
		}

		offset := int32(pc.OffsetFrom(fn.CodeStart))
		gp, ok := fn.GcpointForOffset(offset)
		if !ok {
			fatal("no gcpoint for function %d at offset %d", fn.ID, offset)
		}

		for _, off := range gp.Offsets {
			slotAddr := fp.OffsetSigned(int64(off))
			rootset = append(rootset, object.SlotAt(slotAddr))
		}

		// climb: [fp] holds the caller's saved fp, [fp+8] holds the
		// return address into the caller, the x86-64 frame layout the
		// JIT emits.
		nextFP := object.SlotAt(fp).Get()
		nextPC := object.SlotAt(fp.Offset(8)).Get()
		fp, pc = nextFP, nextPC
	}

	return rootset
}
