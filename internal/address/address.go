// Package address provides the machine-word address and half-open region
// types shared by every layer of the collector. Nothing in this package
// understands object layout; it is pure pointer arithmetic.
package address

import "unsafe"

// Address is an opaque machine-word value. The zero Address is null.
// Every non-null Address observed by the collector points either into the
// reserved heap range or into the perm space.
type Address uintptr

// Null is the canonical null address.
const Null Address = 0

// FromPtr converts a raw unsafe.Pointer to an Address.
func FromPtr(p unsafe.Pointer) Address {
	return Address(uintptr(p))
}

// ToPtr converts an Address back to an unsafe.Pointer. Callers are
// responsible for ensuring the address is non-null and live.
func (a Address) ToPtr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(a))
}

// IsNull reports whether a is the null address.
func (a Address) IsNull() bool {
	return a == Null
}

// ToUintptr returns the raw numeric value of a.
func (a Address) ToUintptr() uintptr {
	return uintptr(a)
}

// Offset returns the address bytes after a.
func (a Address) Offset(bytes uintptr) Address {
	return a + Address(bytes)
}

// OffsetSigned returns the address n bytes after a, where n may be
// negative. Used for gcpoint offsets, which may be negative (locals below
// the frame pointer) or positive (spills and saved registers above it).
func (a Address) OffsetSigned(n int64) Address {
	return Address(int64(a) + n)
}

// OffsetFrom returns the byte distance from other to a (a - other).
func (a Address) OffsetFrom(other Address) uintptr {
	return uintptr(a - other)
}

// Less reports whether a sorts before b.
func (a Address) Less(b Address) bool {
	return a < b
}
