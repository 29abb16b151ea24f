// Package gcconfig holds the collector's environment/CLI tunables, plus
// the heap sizing knobs needed to construct either runtime configuration.
package gcconfig

// Flags carries the boolean tunables shared by both collector
// configurations.
type Flags struct {
	// GCStress collects garbage at every allocation. Useful for testing;
	// devastating for throughput.
	GCStress bool

	// GCDump logs a one-line summary of each collection cycle with its
	// duration, and the simple collector's threshold increases.
	GCDump bool

	// GCStats maintains cycle timers even when GCDump is off, so a caller
	// can inspect Counters after the fact without paying logging overhead.
	GCStats bool

	// GCVerify runs the optional phase-1.5 marking verification pass.
	GCVerify bool

	// GCDevVerbose logs a line at the start of every phase of the full
	// collector.
	GCDevVerbose bool
}

// HeapSizing carries the sizes needed to construct a heap: the young
// generation's per-space size, the old generation's total reserved size,
// and the shared maximum the heap-growth controller enforces across old
// generation and large object space.
type HeapSizing struct {
	YoungSpaceSize uintptr
	OldGenSize     uintptr
	MaxHeapSize    uintptr

	// InitialThreshold carries the --initial-threshold value. simple.New
	// does not take it: the simple collector always starts at
	// DefaultInitialThreshold and grows on sustained pressure only.
	InitialThreshold uintptr
}

// DefaultInitialThreshold is the simple collector's starting allocation
// threshold before any growth.
const DefaultInitialThreshold uintptr = 128

// DefaultUsedRatio is the fraction of the threshold that, if still exceeded
// after a collection, triggers a threshold increase.
const DefaultUsedRatio = 0.75
