// Package oldgen maintains the old generation's committed regions and the
// card table / crossing map that cover them.
package oldgen

import (
	"fmt"
	"sync"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/arena"
	"github.com/swiperlang/swipergc/internal/cardtable"
	"github.com/swiperlang/swipergc/internal/heapconfig"
)

func fatal(format string, args ...interface{}) {
	panic(fmt.Sprintf("swipergc: "+format, args...))
}

// Region tracks one committed old-generation region: start <= top <= end,
// with [start, top) being the active, live portion and (top, end) either
// uncommitted or free. committed is the page-aligned high-water mark of
// pages actually backed with memory; top may trail behind it after a
// collection that freed more than it kept.
type Region struct {
	start, top, end address.Address
	committed       address.Address
}

// NewRegion builds a region over the reserved range [start, end) with
// nothing yet committed (top == start).
func NewRegion(start, end address.Address) *Region {
	return &Region{start: start, top: start, end: end, committed: start}
}

func (r *Region) Start() address.Address { return r.start }
func (r *Region) Top() address.Address   { return r.top }
func (r *Region) End() address.Address   { return r.end }

// ActiveRegion returns [start, top), the portion of the region the full
// collector treats as a bump-pointer target / walk range.
func (r *Region) ActiveRegion() address.Region {
	return address.NewRegion(r.start, r.top)
}

// Total returns the full reserved extent [start, end).
func (r *Region) Total() address.Region {
	return address.NewRegion(r.start, r.end)
}

// OldGen owns one or more old-generation regions plus the card table and
// crossing map covering them. All collection-time mutation happens through
// a Protected guard obtained via Protected().
type OldGen struct {
	mu      sync.Mutex
	regions []*Region

	cardTable   *cardtable.CardTable
	crossingMap *cardtable.CrossingMap
	controller  *heapconfig.Controller
	totalStart  address.Address
}

// NewOldGen constructs an old generation with a single region spanning
// [start, end). The crossing map covers exactly that range; the card table
// covers [start, cardEnd), which extends past end when the large object
// space sits directly behind the old generation: the full collector
// resets cards over large allocations too, so they must be covered.
// The region list supports more than one entry, but every commit/update
// path here drives region 0; growing a multi-region old generation needs
// a placement policy nothing in this module requires yet. controller may
// be nil, in which case commits are bounded only by the reservation.
func NewOldGen(start, end, cardEnd address.Address, controller *heapconfig.Controller) *OldGen {
	if cardEnd.Less(end) {
		cardEnd = end
	}
	return &OldGen{
		regions:     []*Region{NewRegion(start, end)},
		cardTable:   cardtable.NewCardTable(start, cardEnd.OffsetFrom(start)),
		crossingMap: cardtable.NewCrossingMap(start, end.OffsetFrom(start)),
		controller:  controller,
		totalStart:  start,
	}
}

// TotalStart returns the start address of the whole old generation.
func (o *OldGen) TotalStart() address.Address {
	return o.totalStart
}

// CardTable returns the card table covering this old generation.
func (o *OldGen) CardTable() *cardtable.CardTable {
	return o.cardTable
}

// CrossingMap returns the crossing map covering this old generation.
func (o *OldGen) CrossingMap() *cardtable.CrossingMap {
	return o.crossingMap
}

// Protected locks the old generation for the duration of a collection
// cycle and returns a guard granting exclusive write access to its
// regions. The caller must call Unlock when the cycle finishes; the guard
// is held across all six phases, never per-operation.
func (o *OldGen) Protected() *Protected {
	o.mu.Lock()
	return &Protected{old: o}
}

// Protected grants exclusive write access to the old generation's regions
// for as long as it is held.
type Protected struct {
	old *OldGen
}

// Unlock releases the old generation's mutex. Must be called exactly once,
// after the collection cycle that obtained this guard has finished with
// the old generation.
func (p *Protected) Unlock() {
	p.old.mu.Unlock()
}

// Regions exposes the underlying region list for iteration: the region
// walks, capturing each region's top at cycle start, and card resets.
func (p *Protected) Regions() []*Region {
	return p.old.regions
}

// UpdateSingleRegion sets the first region's top to newTop.
func (p *Protected) UpdateSingleRegion(newTop address.Address) {
	p.old.regions[0].top = newTop
}

// CommitSingleRegion commits backing pages for the first region out to
// newTop and then advances its top. Commits happen in whole pages from
// the committed watermark, so the mprotect range stays page-aligned no
// matter where the previous cycle left top. Refusal by the heap-growth
// controller is an old-generation overflow and therefore fatal.
func (p *Protected) CommitSingleRegion(newTop address.Address) {
	region := p.old.regions[0]

	commitEnd := region.start.Offset(arena.PageAlign(newTop.OffsetFrom(region.start)))
	if region.end.Less(commitEnd) {
		commitEnd = region.end
	}

	if region.committed.Less(commitEnd) {
		size := commitEnd.OffsetFrom(region.committed)
		if p.old.controller != nil && !p.old.controller.GrowOld(size) {
			fatal("not enough space for objects in old generation")
		}
		arena.Commit(region.committed, size, false)
		region.committed = commitEnd
	}

	region.top = newTop
}

// UpdateCrossing records that the object relocated to [dest, nextDest)
// crosses the cards it overlaps, tagged with whether it is an array of
// references (which only matters to the young-gen minor collector's card
// scan, not to this bookkeeping itself).
func (p *Protected) UpdateCrossing(dest, nextDest address.Address, isArrayRef bool) {
	_ = isArrayRef
	p.old.crossingMap.RecordObject(dest, nextDest)
}
