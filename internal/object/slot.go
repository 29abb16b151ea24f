package object

import (
	"github.com/swiperlang/swipergc/internal/address"
)

// Slot is a root or in-object reference location: an address at which an
// object reference is stored. The collector reads and writes slots by
// address, never by Go-level type.
type Slot struct {
	addr address.Address
}

// SlotAt wraps the location addr as a Slot.
func SlotAt(addr address.Address) Slot {
	return Slot{addr: addr}
}

// Location returns the address of the slot itself (not its contents).
func (s Slot) Location() address.Address {
	return s.addr
}

// Get reads the reference currently stored in the slot.
func (s Slot) Get() address.Address {
	return *(*address.Address)(s.addr.ToPtr())
}

// Set overwrites the reference stored in the slot.
func (s Slot) Set(target address.Address) {
	*(*address.Address)(s.addr.ToPtr()) = target
}
