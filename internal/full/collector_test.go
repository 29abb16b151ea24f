package full

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/arena"
	"github.com/swiperlang/swipergc/internal/gcconfig"
	"github.com/swiperlang/swipergc/internal/gclog"
	"github.com/swiperlang/swipergc/internal/gcstats"
	"github.com/swiperlang/swipergc/internal/heapconfig"
	"github.com/swiperlang/swipergc/internal/los"
	"github.com/swiperlang/swipergc/internal/object"
	"github.com/swiperlang/swipergc/internal/oldgen"
	"github.com/swiperlang/swipergc/internal/younggen"
)

// testClass is a minimal ClassDescriptor for a fixed-shape object with at
// most one reference field, enough to build linked chains and scalar blobs.
type testClass struct {
	size       uintptr
	refOffsets []uintptr
	arrayRef   bool
}

func (c *testClass) Size(address.Address) uintptr { return c.size }

func (c *testClass) VisitReferenceFields(obj address.Address, visit func(object.Slot)) {
	for _, off := range c.refOffsets {
		visit(object.SlotAt(obj.Offset(off)))
	}
}

func (c *testClass) IsArrayRef() bool { return c.arrayRef }

type harness struct {
	heap   address.Region
	young  *younggen.Gen
	old    *oldgen.OldGen
	large  *los.LargeSpace
	ptrCls object.ClassID
	nodeSz uintptr
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	spaceSize := arena.PageSize
	oldSize := 4 * arena.PageSize
	losSize := 4 * arena.PageSize
	base := arena.Reserve(3*spaceSize + oldSize + losSize)

	young := younggen.NewGen(base, spaceSize)

	controller := heapconfig.NewController(16 * arena.PageSize)

	oldStart := base.Offset(3 * spaceSize)
	losStart := oldStart.Offset(oldSize)
	losEnd := losStart.Offset(losSize)

	old := oldgen.NewOldGen(oldStart, losStart, losEnd, controller)
	large := los.NewLargeSpace(losStart, losEnd, controller)

	heap := address.NewRegion(base, losEnd)

	ptrCls := object.RegisterClass(&testClass{
		size:       object.HeaderSize + 8,
		refOffsets: []uintptr{object.HeaderSize},
	})

	return &harness{
		heap:   heap,
		young:  young,
		old:    old,
		large:  large,
		ptrCls: ptrCls,
		nodeSz: object.HeaderSize + 8,
	}
}

func (h *harness) newNode() address.Address {
	addr := h.young.Bump(h.young.Eden(), h.nodeSz)
	object.HeaderAt(addr).SetClassID(h.ptrCls)
	return addr
}

func (h *harness) setNext(node, next address.Address) {
	object.SlotAt(node.Offset(object.HeaderSize)).Set(next)
}

func (h *harness) collect(rootset []object.Slot) *Collector {
	logger := gclog.New(gcconfig.Flags{GCVerify: true, GCDevVerbose: false}, nil)
	c := NewCollector(Config{
		Heap:        h.heap,
		Young:       h.young,
		Old:         h.old,
		Large:       h.large,
		PermSpace:   address.Region{},
		Rootset:     rootset,
		Reason:      ReasonForced,
		Flags:       gcconfig.Flags{GCVerify: true},
		Log:         logger,
		Stats:       &gcstats.Counters{},
		MaxHeapSize: 4 * arena.PageSize,
	})
	c.Collect()
	return c
}

func TestCollectPromotesReachableChainAndDropsGarbage(t *testing.T) {
	h := newHarness(t)

	a := h.newNode()
	b := h.newNode()
	c := h.newNode() // unreachable
	_ = c

	h.setNext(a, b)

	rootStorage := make([]byte, 8)
	rootSlot := object.SlotAt(address.FromPtr(unsafe.Pointer(&rootStorage[0])))
	rootSlot.Set(a)

	h.collect([]object.Slot{rootSlot})

	newA := rootSlot.Get()
	assert.NotEqual(t, a, newA, "root should have been forwarded to a new old-gen address")
	assert.False(t, newA < h.old.TotalStart(), "forwarded root %v should be in the old generation", newA)

	newB := object.SlotAt(newA.Offset(object.HeaderSize)).Get()

	guard := h.old.Protected()
	top := guard.Regions()[0].Top()
	guard.Unlock()

	wantTop := h.old.TotalStart().Offset(2 * h.nodeSz)
	assert.Equal(t, wantTop, top, "old gen top should reflect two survivors")
	assert.NotEqual(t, newA, newB, "a and b should have forwarded to distinct addresses")
}

func TestCollectLongChainSurvivesIntoOldGen(t *testing.T) {
	h := newHarness(t)

	const chainLen = 100

	var head address.Address
	for i := 0; i < chainLen; i++ {
		node := h.newNode()
		h.setNext(node, head)
		head = node
	}

	rootStorage := make([]byte, 8)
	rootSlot := object.SlotAt(address.FromPtr(unsafe.Pointer(&rootStorage[0])))
	rootSlot.Set(head)

	c := h.collect([]object.Slot{rootSlot})

	oldCommitted := address.NewRegion(h.old.TotalStart(), c.OldTop())

	seen := map[address.Address]bool{}
	for addr := rootSlot.Get(); !addr.IsNull(); addr = object.SlotAt(addr.Offset(object.HeaderSize)).Get() {
		assert.True(t, oldCommitted.Contains(addr), "chain node %v should be in the old generation", addr)
		assert.False(t, object.HeaderAt(addr).IsMarkedNonAtomic(), "chain node %v should be unmarked", addr)
		seen[addr] = true
	}
	assert.Len(t, seen, chainLen, "walking the chain should yield every node at a distinct address")
}

func TestCollectWithEmptyRootsetDropsEverything(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 10; i++ {
		h.newNode()
	}

	blobCls := object.RegisterClass(&testClass{size: 64})
	blob := h.large.Alloc(64)
	object.HeaderAt(blob).SetClassID(blobCls)

	c := h.collect(nil)

	assert.Equal(t, h.old.TotalStart(), c.OldTop(), "old gen should be empty without roots")
	assert.Equal(t, address.Null, h.large.Head(), "large object space should be empty without roots")
}

func TestCollectTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t)

	a := h.newNode()
	b := h.newNode()
	h.setNext(a, b)

	rootStorage := make([]byte, 8)
	rootSlot := object.SlotAt(address.FromPtr(unsafe.Pointer(&rootStorage[0])))
	rootSlot.Set(a)

	first := h.collect([]object.Slot{rootSlot})
	rootAfterFirst := rootSlot.Get()
	topAfterFirst := first.OldTop()

	second := h.collect([]object.Slot{rootSlot})

	assert.Equal(t, rootAfterFirst, rootSlot.Get(), "a second cycle with no mutator work should not move the root")
	assert.Equal(t, topAfterFirst, second.OldTop(), "a second cycle with no mutator work should not change old top")
}

func TestCollectRetainsLargeObjectInPlaceAndSweepsUnreachable(t *testing.T) {
	h := newHarness(t)

	largeCls := object.RegisterClass(&testClass{size: 64})

	live := h.large.Alloc(64)
	object.HeaderAt(live).SetClassID(largeCls)

	garbage := h.large.Alloc(64)
	object.HeaderAt(garbage).SetClassID(largeCls)

	holder := h.newNode()
	h.setNext(holder, live)

	rootStorage := make([]byte, 8)
	rootSlot := object.SlotAt(address.FromPtr(unsafe.Pointer(&rootStorage[0])))
	rootSlot.Set(holder)

	h.collect([]object.Slot{rootSlot})

	seen := map[address.Address]bool{}
	h.large.VisitObjects(func(addr address.Address) { seen[addr] = true })

	assert.True(t, seen[live], "referenced large object should survive at its original address")
	assert.False(t, seen[garbage], "unreferenced large object should have been swept")

	newHolder := rootSlot.Get()
	gotRef := object.SlotAt(newHolder.Offset(object.HeaderSize)).Get()
	assert.Equal(t, live, gotRef, "large object reference should be unchanged (never forwarded)")
}

func TestCollectResetsCardsOverRelocatedRegion(t *testing.T) {
	h := newHarness(t)

	a := h.newNode()

	rootStorage := make([]byte, 8)
	rootSlot := object.SlotAt(address.FromPtr(unsafe.Pointer(&rootStorage[0])))
	rootSlot.Set(a)

	h.old.CardTable().MarkDirty(h.old.TotalStart())

	h.collect([]object.Slot{rootSlot})

	assert.False(t, h.old.CardTable().IsDirty(h.old.TotalStart()),
		"card covering the relocated region should have been reset")
}

func TestCollectResetsCardsOverLargeObjects(t *testing.T) {
	h := newHarness(t)

	largeCls := object.RegisterClass(&testClass{size: 64})
	obj := h.large.Alloc(64)
	object.HeaderAt(obj).SetClassID(largeCls)

	rootStorage := make([]byte, 8)
	rootSlot := object.SlotAt(address.FromPtr(unsafe.Pointer(&rootStorage[0])))
	rootSlot.Set(obj)

	h.old.CardTable().MarkDirty(obj)

	h.collect([]object.Slot{rootSlot})

	assert.False(t, h.old.CardTable().IsDirty(obj),
		"card covering the large allocation should have been reset")
}