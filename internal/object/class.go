package object

import (
	"sync"

	"github.com/swiperlang/swipergc/internal/address"
)

// ClassDescriptor exposes everything the collector needs to know about an
// object's shape without caring about its source-language type system: its
// total byte size (which may depend on the object's own payload, e.g. an
// array length word), an iterator over its reference-typed field offsets,
// and whether it is an array of references.
//
// A class descriptor is immutable once published; the JIT registers one per
// compiled class, before any instance of that class can be allocated.
type ClassDescriptor interface {
	// Size returns the total byte length (header included) of the object
	// whose header starts at obj.
	Size(obj address.Address) uintptr

	// VisitReferenceFields invokes visit once per reference-typed field, in
	// declaration order, passing the Slot at which that field lives.
	VisitReferenceFields(obj address.Address, visit func(Slot))

	// IsArrayRef reports whether obj is an array of object references, as
	// opposed to a fixed-shape record. Card bookkeeping uses this to decide
	// whether to cover the whole payload or just the header cell.
	IsArrayRef() bool
}

// ClassID indexes into the global class registry. Object headers store a
// ClassID rather than a direct pointer to a ClassDescriptor: header memory
// is carved out of collector-managed pages that the host Go runtime's own
// collector never scans, so a raw pointer stored there would be invisible
// to the host GC and the class descriptor could be collected out from
// under a live object. An index into an ordinarily-reachable Go slice has
// no such hazard.
type ClassID uint32

var classRegistry struct {
	mu      sync.RWMutex
	classes []ClassDescriptor
}

// RegisterClass publishes a class descriptor and returns the ID that object
// headers should store to reference it. Mirrors how the JIT publishes a
// compiled function to the code map: write-once, read-many.
func RegisterClass(desc ClassDescriptor) ClassID {
	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()

	classRegistry.classes = append(classRegistry.classes, desc)
	return ClassID(len(classRegistry.classes) - 1)
}

// ClassByID looks up a previously registered class descriptor. Fatal if id
// was never registered: that can only happen if the collector walked
// corrupted header memory.
func ClassByID(id ClassID) ClassDescriptor {
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()

	if int(id) >= len(classRegistry.classes) {
		panic("object: unregistered class id")
	}
	return classRegistry.classes[id]
}
