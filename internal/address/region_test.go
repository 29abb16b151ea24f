package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionContains(t *testing.T) {
	r := NewRegion(Address(0x1000), Address(0x2000))

	assert.True(t, r.Contains(Address(0x1000)), "region should contain its start")
	assert.False(t, r.Contains(Address(0x2000)), "region should not contain its end (half-open)")
	assert.True(t, r.Contains(Address(0x1500)), "region should contain an interior address")
}

func TestRegionValidTop(t *testing.T) {
	r := NewRegion(Address(0x1000), Address(0x2000))

	assert.True(t, r.ValidTop(Address(0x2000)), "end should be a valid top")
	assert.True(t, r.ValidTop(Address(0x1000)), "start should be a valid top")
	assert.False(t, r.ValidTop(Address(0x2001)), "past-end should not be a valid top")
}

func TestRegionSize(t *testing.T) {
	r := NewRegion(Address(0x1000), Address(0x1100))
	assert.Equal(t, uintptr(0x100), r.Size())
}

func TestNewRegionPanicsOnInverted(t *testing.T) {
	assert.Panics(t, func() {
		NewRegion(Address(0x2000), Address(0x1000))
	})
}
