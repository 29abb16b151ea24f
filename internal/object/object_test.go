package object

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiperlang/swipergc/internal/address"
)

// fixedClass is a test ClassDescriptor for fixed-shape objects with a
// known set of reference field offsets (relative to the object start).
type fixedClass struct {
	size          uintptr
	refOffsets    []uintptr
	isArrayOfRefs bool
}

func (c *fixedClass) Size(address.Address) uintptr { return c.size }

func (c *fixedClass) VisitReferenceFields(obj address.Address, visit func(Slot)) {
	for _, off := range c.refOffsets {
		visit(SlotAt(obj.Offset(off)))
	}
}

func (c *fixedClass) IsArrayRef() bool { return c.isArrayOfRefs }

func newHeap(t *testing.T, size int) address.Address {
	t.Helper()
	buf := make([]byte, size)
	t.Cleanup(func() { _ = buf })
	return address.FromPtr(unsafe.Pointer(&buf[0]))
}

func TestHeaderMarkRoundTrip(t *testing.T) {
	cls := RegisterClass(&fixedClass{size: 32})
	base := newHeap(t, 64)

	h := HeaderAt(base)
	h.SetClassID(cls)

	assert.False(t, h.IsMarkedNonAtomic(), "fresh header should be unmarked")

	h.MarkNonAtomic()
	assert.True(t, h.IsMarkedNonAtomic(), "expected header to be marked")

	h.UnmarkNonAtomic()
	assert.False(t, h.IsMarkedNonAtomic(), "expected header to be unmarked after UnmarkNonAtomic")
}

func TestHeaderFwdptrRoundTrip(t *testing.T) {
	cls := RegisterClass(&fixedClass{size: 32})
	base := newHeap(t, 64)

	h := HeaderAt(base)
	h.SetClassID(cls)

	dest := base.Offset(128)
	h.SetFwdptrNonAtomic(dest)

	assert.Equal(t, dest, h.FwdptrNonAtomic())
}

func TestHeaderSuccSharesFwdptrStorage(t *testing.T) {
	cls := RegisterClass(&fixedClass{size: 32})
	base := newHeap(t, 64)

	h := HeaderAt(base)
	h.SetClassID(cls)

	next := base.Offset(64)
	h.SetSucc(next)

	assert.Equal(t, next, h.FwdptrNonAtomic(), "succ and fwdptr should share storage")
}

func TestVisitReferenceFields(t *testing.T) {
	cls := RegisterClass(&fixedClass{
		size:       uintptr(HeaderSize) + 16,
		refOffsets: []uintptr{HeaderSize, HeaderSize + 8},
	})
	base := newHeap(t, 128)

	h := HeaderAt(base)
	h.SetClassID(cls)

	targetA := base.Offset(64)
	targetB := base.Offset(96)

	SlotAt(base.Offset(HeaderSize)).Set(targetA)
	SlotAt(base.Offset(HeaderSize + 8)).Set(targetB)

	var seen []address.Address
	h.VisitReferenceFields(func(s Slot) {
		seen = append(seen, s.Get())
	})

	require.Len(t, seen, 2)
	assert.Equal(t, targetA, seen[0])
	assert.Equal(t, targetB, seen[1])
}

func TestCopyToNonOverlapping(t *testing.T) {
	cls := RegisterClass(&fixedClass{size: HeaderSize + 8})
	base := newHeap(t, 128)
	h := HeaderAt(base)
	h.SetClassID(cls)

	SlotAt(base.Offset(HeaderSize)).Set(address.Address(0xdeadbeef))

	dest := base.Offset(64)
	h.CopyTo(dest, h.Size())

	got := SlotAt(dest.Offset(HeaderSize)).Get()
	assert.Equal(t, address.Address(0xdeadbeef), got, "copy did not preserve payload")
}

func TestWalkRegionVisitsSequentially(t *testing.T) {
	cls := RegisterClass(&fixedClass{size: 32})
	base := newHeap(t, 256)

	for i := 0; i < 3; i++ {
		HeaderAt(base.Offset(uintptr(i) * 32)).SetClassID(cls)
	}

	region := address.NewRegion(base, base.Offset(96))

	var addrs []address.Address
	WalkRegion(region, func(h Header, addr address.Address, size uintptr) {
		addrs = append(addrs, addr)
		assert.EqualValues(t, 32, size)
	})

	require.Len(t, addrs, 3)
	for i, a := range addrs {
		want := base.Offset(uintptr(i) * 32)
		assert.Equal(t, want, a, "object %d", i)
	}
}
