package cardtable

import "github.com/swiperlang/swipergc/internal/address"

// NoFirstObject is the crossing-map sentinel meaning "no object header
// starts within or overlaps this card".
const NoFirstObject int32 = -1

// CrossingMap is the card table's companion: for each card, the byte
// offset (from the card's start) of the first object header that starts
// within or overlaps that card. The young-generation minor collector
// (out of scope here) uses this to find a scan starting point inside a
// dirty card without walking the whole old generation from the top.
type CrossingMap struct {
	base    address.Address
	offsets []int32
}

// NewCrossingMap allocates a crossing map covering [base, base+size),
// aligned 1:1 with a CardTable built over the same range.
func NewCrossingMap(base address.Address, size uintptr) *CrossingMap {
	numCards := (size + CardSize - 1) / CardSize
	m := &CrossingMap{base: base, offsets: make([]int32, numCards)}
	m.Reset()
	return m
}

// Reset marks every card as having no first object. NewCrossingMap starts
// every map from this state.
func (m *CrossingMap) Reset() {
	for i := range m.offsets {
		m.offsets[i] = NoFirstObject
	}
}

func (m *CrossingMap) indexOf(addr address.Address) int {
	return int(addr.OffsetFrom(m.base) / CardSize)
}

// SetFirstObject records that the card at index cardIdx's first crossing
// object starts offset bytes into that card.
func (m *CrossingMap) SetFirstObject(cardIdx int, offset int32) {
	m.offsets[cardIdx] = offset
}

// FirstObjectOffset returns the recorded first-object offset for the card
// covering addr, or NoFirstObject.
func (m *CrossingMap) FirstObjectOffset(addr address.Address) int32 {
	return m.offsets[m.indexOf(addr)]
}

// RecordObject updates every card that [dest, nextDest) overlaps with the
// offset of this object relative to each card's start: 0 for cards the
// object covers from their start, and its offset for the card it starts
// in, unless that card already records an earlier object. Mirrors
// OldGen.UpdateCrossing's per-card bookkeeping during relocate.
func (m *CrossingMap) RecordObject(dest, nextDest address.Address) {
	firstCard := m.indexOf(dest)
	lastCard := int((nextDest.OffsetFrom(m.base) - 1) / CardSize)

	for card := firstCard; card <= lastCard; card++ {
		cardStart := m.base.Offset(uintptr(card) * CardSize)
		if dest.Less(cardStart) || dest == cardStart {
			m.offsets[card] = 0
		} else if off := int32(dest.OffsetFrom(cardStart)); m.offsets[card] == NoFirstObject || off < m.offsets[card] {
			m.offsets[card] = off
		}
	}
}
