// Package younggen provides the young-generation spaces the full collector
// walks and resets. It is not a minor collector: no scavenging and no
// promotion policy live here, only the eden/from/to regions the full
// collector's region walk and end-of-cycle reset operate on.
package younggen

import (
	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/arena"
)

// Gen is a two-space (from/to) young generation with an eden allocation
// buffer in front of it. The full collector walks its regions in a fixed
// order: eden, from, to.
type Gen struct {
	eden, from, to *space
}

type space struct {
	region address.Region
	top    address.Address

	protectedAgainstWrite bool
}

func newSpace(start, end address.Address) *space {
	return &space{region: address.NewRegion(start, end), top: start}
}

// NewGen lays out three equally sized spaces (eden, from, to) starting at
// base and commits them. The range must already have been reserved.
func NewGen(base address.Address, spaceSize uintptr) *Gen {
	eden := newSpace(base, base.Offset(spaceSize))
	from := newSpace(eden.region.End, eden.region.End.Offset(spaceSize))
	to := newSpace(from.region.End, from.region.End.Offset(spaceSize))

	total := spaceSize * 3
	arena.Commit(base, arena.PageAlign(total), false)

	return &Gen{eden: eden, from: from, to: to}
}

// Bump bumps the given space's top by size, without checking capacity;
// callers (the out-of-scope minor collector / mutator fast path) are
// responsible for triggering a minor collection before overflow. Exposed
// so tests can populate eden/from/to without a real allocator.
func (g *Gen) Bump(which *space, size uintptr) address.Address {
	addr := which.top
	which.top = which.top.Offset(size)
	return addr
}

// Eden, From, To expose the raw spaces for test setup.
func (g *Gen) Eden() *space { return g.eden }
func (g *Gen) From() *space { return g.from }
func (g *Gen) To() *space   { return g.to }

// EdenActive returns the live portion of eden.
func (g *Gen) EdenActive() address.Region {
	return address.NewRegion(g.eden.region.Start, g.eden.top)
}

// FromActive returns the live portion of the from-space.
func (g *Gen) FromActive() address.Region {
	return address.NewRegion(g.from.region.Start, g.from.top)
}

// ToActive returns the live portion of the to-space. Usually empty, but
// may hold survivors from a minor collection that ran just before a full
// collection.
func (g *Gen) ToActive() address.Region {
	return address.NewRegion(g.to.region.Start, g.to.top)
}

// Clear resets eden, from, and to to empty, called at the end of a full
// collection cycle once every live young-gen object has been relocated
// into the old generation.
func (g *Gen) Clear() {
	g.eden.top = g.eden.region.Start
	g.from.top = g.from.region.Start
	g.to.top = g.to.region.Start
}

// ProtectTo re-protects the to-space so the next minor collection's write
// barrier can detect stores into it before it has been reused. Only the
// intent is recorded here; the write-barrier side belongs to the minor
// collector.
func (g *Gen) ProtectTo() {
	g.to.protectedAgainstWrite = true
}
