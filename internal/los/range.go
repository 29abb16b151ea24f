package los

import (
	"sort"

	"github.com/swiperlang/swipergc/internal/address"
)

// freeRange is a free sub-range of the large object space's reserved
// extent: start < end, never empty.
type freeRange struct {
	start, end address.Address
}

func newFreeRange(start, end address.Address) freeRange {
	if end <= start {
		panic("los: free range end must be after start")
	}
	return freeRange{start: start, end: end}
}

func (r freeRange) size() uintptr {
	return r.end.OffsetFrom(r.start)
}

func (r freeRange) contains(addr address.Address) bool {
	return r.start <= addr && addr < r.end
}

// mergeFreeRanges sorts ranges by start and coalesces adjacent ones.
// First-fit allocation fragments the free list; merging after every sweep
// keeps it from fragmenting irreversibly.
func mergeFreeRanges(ranges []freeRange) []freeRange {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].start < ranges[j].start
	})

	if len(ranges) == 0 {
		return ranges
	}

	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if last.end == r.start {
			last.end = r.end
		} else {
			merged = append(merged, r)
		}
	}

	return merged
}
