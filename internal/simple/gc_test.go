package simple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/gcconfig"
	"github.com/swiperlang/swipergc/internal/object"
)

// linkClass is a one-reference-field class used throughout: a node with a
// single outgoing pointer at offset object.HeaderSize.
type linkClass struct {
	size uintptr
}

func (c *linkClass) Size(address.Address) uintptr { return c.size }

func (c *linkClass) VisitReferenceFields(obj address.Address, visit func(object.Slot)) {
	visit(object.SlotAt(obj.Offset(object.HeaderSize)))
}

func (c *linkClass) IsArrayRef() bool { return false }

func setup(t *testing.T) (*Gc, object.ClassID, *[]address.Address) {
	t.Helper()

	cls := object.RegisterClass(&linkClass{size: object.HeaderSize + 8})

	var roots []address.Address
	gc := New(64*1024, func() []address.Address { return roots }, func() []address.Address { return nil },
		gcconfig.Flags{}, nil, nil)

	return gc, cls, &roots
}

func setNext(node, next address.Address) {
	object.SlotAt(node.Offset(object.HeaderSize)).Set(next)
}

func TestAllocLinksOntoIntrusiveList(t *testing.T) {
	gc, cls, _ := setup(t)

	a := gc.Alloc(object.HeaderSize+8, cls)
	b := gc.Alloc(object.HeaderSize+8, cls)

	require.False(t, a.IsNull(), "allocations should succeed")
	require.False(t, b.IsNull(), "allocations should succeed")
	assert.Equal(t, b, object.HeaderAt(a).Succ(), "a's succ should be b")
}

func TestCollectSweepsUnreachableAndKeepsRooted(t *testing.T) {
	gc, cls, roots := setup(t)

	a := gc.Alloc(object.HeaderSize+8, cls)
	_ = gc.Alloc(object.HeaderSize+8, cls) // unreachable garbage

	*roots = []address.Address{a}

	gc.Collect()

	// a must still be in the (relinked) list; walk from head.
	found := false
	for addr := gc.headAddr; !addr.IsNull(); addr = object.HeaderAt(addr).Succ() {
		if addr == a {
			found = true
		}
	}
	assert.True(t, found, "rooted object a should have survived the collection")
}

func TestCollectFollowsChainThroughReferenceField(t *testing.T) {
	gc, cls, roots := setup(t)

	a := gc.Alloc(object.HeaderSize+8, cls)
	b := gc.Alloc(object.HeaderSize+8, cls)
	setNext(a, b)

	*roots = []address.Address{a}

	gc.Collect()

	count := 0
	for addr := gc.headAddr; !addr.IsNull(); addr = object.HeaderAt(addr).Succ() {
		count++
	}
	assert.Equal(t, 2, count, "expected a and b to both survive (reachable via a's field)")
}

// Garbage allocated after a cycle carries the stale mark colour and is
// only reclaimed by a cycle running under the colour it mismatches, so
// this test stays below the threshold: no intermediate cycle runs and the
// single Collect sweeps with the initial colour.
func TestCollectWithoutRootsFreesEverything(t *testing.T) {
	gc, cls, roots := setup(t)
	*roots = nil

	for i := 0; i < 5; i++ {
		gc.Alloc(object.HeaderSize+8, cls)
	}

	gc.Collect()

	assert.EqualValues(t, 0, gc.bytesAllocated, "every object should have been swept")
	assert.True(t, gc.headAddr.IsNull(), "intrusive list should be empty")
	assert.True(t, gc.tailAddr.IsNull(), "intrusive list tail should be cleared")
}

func TestAllocGrowsThresholdUnderSustainedPressure(t *testing.T) {
	gc, cls, roots := setup(t)

	savedThreshold := gc.threshold
	size := object.HeaderSize + 8

	// build a chain that is always fully rooted, so bytesAllocated never
	// drops back to zero across a collection: each cycle's survivors stay
	// above USED_RATIO of the threshold, forcing growth.
	var head address.Address
	for i := 0; i < 20; i++ {
		node := gc.Alloc(size, cls)
		setNext(node, head)
		head = node
		*roots = []address.Address{head}
	}

	assert.Greater(t, gc.threshold, savedThreshold, "expected threshold to grow under sustained pressure")
}

func TestAllocStressCollectsEveryTime(t *testing.T) {
	gc, cls, roots := setup(t)
	*roots = nil

	before := gc.counters.Collections
	gc.flags.GCStress = true

	gc.Alloc(object.HeaderSize+8, cls)
	gc.Alloc(object.HeaderSize+8, cls)

	assert.Equal(t, before+2, gc.counters.Collections, "gc-stress should collect on every allocation")
}
