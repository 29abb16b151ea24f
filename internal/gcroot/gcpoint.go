package gcroot

// Gcpoint is a per-(function, PC-offset) table of signed byte offsets from
// the frame pointer identifying which stack slots hold live object
// references at that program point. Produced by the JIT; immutable after
// function compilation.
type Gcpoint struct {
	// Offsets are frame-pointer-relative byte offsets. Negative for
	// locals below the frame pointer, positive for spills and saved
	// registers above it.
	Offsets []int32
}

// NewGcpoint builds a Gcpoint from a set of frame-pointer-relative
// offsets.
func NewGcpoint(offsets ...int32) *Gcpoint {
	return &Gcpoint{Offsets: offsets}
}
