package object

import (
	"unsafe"

	"github.com/swiperlang/swipergc/internal/address"
)

// rawHeader is the physical layout every managed object begins with. The
// mark bit and the link word are non-atomic: the full collector only ever
// touches them stop-the-world. The link word is deliberately reused for
// two unrelated purposes depending on which collector configuration is
// running: the mark-compact forwarding pointer, or the simple collector's
// intrusive-list successor. Only one of FwdptrNonAtomic/Succ is ever live
// for a given header at a given time.
type rawHeader struct {
	class ClassID
	mark  uint32
	link  address.Address
}

// HeaderSize is the byte length of the header prefix every object carries.
var HeaderSize = unsafe.Sizeof(rawHeader{})

// Header is a handle onto the header of the object whose first byte is at
// addr. It is a thin accessor, not a copy: all methods read or write
// through addr.
type Header struct {
	addr address.Address
}

// HeaderAt returns a Header handle for the object starting at addr.
func HeaderAt(addr address.Address) Header {
	return Header{addr: addr}
}

// Address returns the object's own start address.
func (h Header) Address() address.Address {
	return h.addr
}

func (h Header) raw() *rawHeader {
	return (*rawHeader)(h.addr.ToPtr())
}

// ClassID returns the registered class of the object.
func (h Header) ClassID() ClassID {
	return h.raw().class
}

// SetClassID stamps the object with its class. Called once, at allocation.
func (h Header) SetClassID(id ClassID) {
	h.raw().class = id
}

func (h Header) class() ClassDescriptor {
	return ClassByID(h.ClassID())
}

// Size returns the total byte length of the object, header included.
func (h Header) Size() uintptr {
	return h.class().Size(h.addr)
}

// IsArrayRef reports whether the object is an array of references.
func (h Header) IsArrayRef() bool {
	return h.class().IsArrayRef()
}

// VisitReferenceFields invokes visit once per reference-typed field.
func (h Header) VisitReferenceFields(visit func(Slot)) {
	h.class().VisitReferenceFields(h.addr, visit)
}

// IsMarkedNonAtomic reports the mark bit under the stop-the-world
// assumption: no concurrent mutator or collector thread may observe or
// modify it at the same time.
func (h Header) IsMarkedNonAtomic() bool {
	return h.raw().mark != 0
}

// MarkNonAtomic sets the mark bit.
func (h Header) MarkNonAtomic() {
	h.raw().mark = 1
}

// UnmarkNonAtomic clears the mark bit. The full collector calls it on
// relocated objects and on surviving large objects; the simple collector
// calls it to give an object the false colour while marking.
func (h Header) UnmarkNonAtomic() {
	h.raw().mark = 0
}

// FwdptrNonAtomic reads the forwarding address written during the
// compute-forward phase. Valid only from then until the final unmark in
// relocate.
func (h Header) FwdptrNonAtomic() address.Address {
	return h.raw().link
}

// SetFwdptrNonAtomic records the object's post-compaction address.
func (h Header) SetFwdptrNonAtomic(dest address.Address) {
	h.raw().link = dest
}

// Succ returns the next object in the simple collector's intrusive list.
func (h Header) Succ() address.Address {
	return h.raw().link
}

// SetSucc links the object to the next one in the simple collector's
// intrusive list.
func (h Header) SetSucc(next address.Address) {
	h.raw().link = next
}

// CopyTo copies size bytes from h's object to dest. Source and
// destination may overlap only when dest < h's address: compaction
// relocates strictly downward within a region.
func (h Header) CopyTo(dest address.Address, size uintptr) {
	src := unsafe.Slice((*byte)(h.addr.ToPtr()), size)
	dst := unsafe.Slice((*byte)(dest.ToPtr()), size)
	copy(dst, src)
}
