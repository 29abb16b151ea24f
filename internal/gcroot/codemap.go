// Package gcroot implements the collector's half of the runtime↔JIT
// contract: the code map the JIT publishes compiled functions to, the
// per-PC gcpoint tables it publishes alongside them, and the stack walker
// that turns a safepoint frame into a precise rootset.
package gcroot

import (
	"fmt"
	"sort"
	"sync"

	"github.com/swiperlang/swipergc/internal/address"
)

// FctKind distinguishes JIT-compiled functions from the builtins and
// intrinsics that never own a gcpoint table. Only Source functions have a
// JIT-compiled body the rootset walker can safely continue through.
type FctKind int

const (
	FctSource FctKind = iota
	FctDefinition
	FctBuiltin
	FctIntrinsic
)

func (k FctKind) String() string {
	switch k {
	case FctSource:
		return "Source"
	case FctDefinition:
		return "Definition"
	case FctBuiltin:
		return "Builtin"
	case FctIntrinsic:
		return "Intrinsic"
	default:
		return "Unknown"
	}
}

// FunctionID identifies a compiled function, as published to the code map.
type FunctionID uint32

// Function is what the code map stores per published function: its code
// range, its kind, and, for Source functions, the gcpoint table the JIT
// emitted alongside it.
type Function struct {
	ID         FunctionID
	Kind       FctKind
	CodeStart  address.Address
	CodeLength uintptr

	mu       sync.RWMutex
	gcpoints map[int32]*Gcpoint
}

// NewFunction publishes a function's code range. gcpoints are attached
// afterward, one per safepoint, via PublishGcpoint.
func NewFunction(id FunctionID, kind FctKind, codeStart address.Address, codeLength uintptr) *Function {
	return &Function{
		ID:         id,
		Kind:       kind,
		CodeStart:  codeStart,
		CodeLength: codeLength,
		gcpoints:   make(map[int32]*Gcpoint),
	}
}

// PublishGcpoint attaches a gcpoint at the given byte offset from
// CodeStart. Only meaningful for Source functions.
func (f *Function) PublishGcpoint(pcOffset int32, gp *Gcpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gcpoints[pcOffset] = gp
}

// GcpointForOffset looks up the gcpoint at pcOffset. Absent is fatal at
// the walker level: the JIT must emit a gcpoint at every call site and
// safepoint.
func (f *Function) GcpointForOffset(pcOffset int32) (*Gcpoint, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	gp, ok := f.gcpoints[pcOffset]
	return gp, ok
}

// contains reports whether pc falls within this function's code range.
func (f *Function) contains(pc address.Address) bool {
	return f.CodeStart <= pc && pc < f.CodeStart.Offset(f.CodeLength)
}

// CodeMap maps PC ranges to published functions. Guarded by a mutex
// acquired read-only during rootset walking; updated only when a JIT
// function is published.
type CodeMap struct {
	mu        sync.RWMutex
	functions []*Function // sorted by CodeStart
}

// NewCodeMap returns an empty code map.
func NewCodeMap() *CodeMap {
	return &CodeMap{}
}

// Publish registers fn's code range with the map. Every emitted function
// must publish its code range exactly once.
func (m *CodeMap) Publish(fn *Function) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.functions), func(i int) bool {
		return m.functions[i].CodeStart >= fn.CodeStart
	})
	m.functions = append(m.functions, nil)
	copy(m.functions[i+1:], m.functions[i:])
	m.functions[i] = fn
}

// Lookup finds the function whose code range contains pc. Returns
// (nil, false) if pc is not covered by any published function; the
// walker treats that as having entered a non-managed frame and stops.
func (m *CodeMap) Lookup(pc address.Address) (*Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := sort.Search(len(m.functions), func(i int) bool {
		return m.functions[i].CodeStart > pc
	})
	if i == 0 {
		return nil, false
	}

	fn := m.functions[i-1]
	if !fn.contains(pc) {
		return nil, false
	}
	return fn, true
}

func fatal(format string, args ...interface{}) {
	panic(fmt.Sprintf("swipergc: "+format, args...))
}
