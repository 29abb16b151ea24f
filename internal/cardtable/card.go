// Package cardtable implements the card table and crossing map consumed by
// the (out-of-scope) young-generation minor collector, and maintained by
// the full collector's relocate and LOS-sweep phases.
package cardtable

import "github.com/swiperlang/swipergc/internal/address"

// CardSize is the number of old-generation bytes one card entry covers.
const CardSize = 512

// CardTable is a byte array, one entry per CardSize-byte region of the
// covered address range, marking which cards may contain old-to-young
// references. The full collector only ever resets cards to clean; dirtying
// them is a write-barrier concern that belongs to the (out-of-scope) young
// generation.
type CardTable struct {
	base  address.Address
	cards []byte
}

// NewCardTable allocates a card table covering [base, base+size).
func NewCardTable(base address.Address, size uintptr) *CardTable {
	numCards := (size + CardSize - 1) / CardSize
	return &CardTable{base: base, cards: make([]byte, numCards)}
}

func (c *CardTable) indexOf(addr address.Address) int {
	return int(addr.OffsetFrom(c.base) / CardSize)
}

// CardAddress returns the address at which card i begins.
func (c *CardTable) CardAddress(i int) address.Address {
	return c.base.Offset(uintptr(i) * CardSize)
}

// IsDirty reports whether the card covering addr is dirty.
func (c *CardTable) IsDirty(addr address.Address) bool {
	return c.cards[c.indexOf(addr)] != 0
}

// MarkDirty marks the card covering addr dirty. Exposed for the
// (out-of-scope) write-barrier/minor-collector side of the contract; the
// full collector itself never calls this.
func (c *CardTable) MarkDirty(addr address.Address) {
	c.cards[c.indexOf(addr)] = 1
}

// ResetAddr cleans the single card covering addr.
func (c *CardTable) ResetAddr(addr address.Address) {
	c.cards[c.indexOf(addr)] = 0
}

// ResetRegion cleans every card overlapping [start, end).
func (c *CardTable) ResetRegion(start, end address.Address) {
	if end <= start {
		return
	}

	first := c.indexOf(start)
	last := int((end.OffsetFrom(c.base) - 1) / CardSize)

	for i := first; i <= last; i++ {
		c.cards[i] = 0
	}
}

// NumCards returns the number of cards in the table.
func (c *CardTable) NumCards() int {
	return len(c.cards)
}
