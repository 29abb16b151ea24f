package main

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/swiperlang/swipergc/internal/address"
	"github.com/swiperlang/swipergc/internal/arena"
	"github.com/swiperlang/swipergc/internal/full"
	"github.com/swiperlang/swipergc/internal/gclog"
	"github.com/swiperlang/swipergc/internal/gcstats"
	"github.com/swiperlang/swipergc/internal/heapconfig"
	"github.com/swiperlang/swipergc/internal/los"
	"github.com/swiperlang/swipergc/internal/object"
	"github.com/swiperlang/swipergc/internal/oldgen"
	"github.com/swiperlang/swipergc/internal/younggen"
)

// linkedClass is a node with one outgoing reference field right after the
// header, enough to build chains deep enough to exercise marking and
// relocation without a real mutator behind it.
type linkedClass struct{ size uintptr }

func (c *linkedClass) Size(address.Address) uintptr { return c.size }

func (c *linkedClass) VisitReferenceFields(obj address.Address, visit func(object.Slot)) {
	visit(object.SlotAt(obj.Offset(object.HeaderSize)))
}

func (c *linkedClass) IsArrayRef() bool { return false }

// blobClass is a reference-free payload, used for large object space
// allocations.
type blobClass struct{ size uintptr }

func (c *blobClass) Size(address.Address) uintptr { return c.size }

func (c *blobClass) VisitReferenceFields(address.Address, func(object.Slot)) {}

func (c *blobClass) IsArrayRef() bool { return false }

func demoFullCmd(t *tunables) *cobra.Command {
	var chainLength int
	var garbageCount int
	var largeObjectSize uint64

	cmd := &cobra.Command{
		Use:   "demo-full",
		Short: "build a young-gen chain plus garbage, then run a full collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemoFull(t, chainLength, garbageCount, uintptr(largeObjectSize))
		},
	}

	cmd.Flags().IntVar(&chainLength, "chain-length", 8, "rooted linked-node chain length")
	cmd.Flags().IntVar(&garbageCount, "garbage-count", 8, "unrooted nodes allocated alongside the chain")
	cmd.Flags().Uint64Var(&largeObjectSize, "large-object-size", 0,
		"if set, also allocate one object of this size in the large object space before collecting")

	return cmd
}

// allocLarge wraps los.LargeSpace.Alloc's recoverable null-return in an
// error value: a refused large-object allocation is recoverable, never
// fatal, and the mutator (here, the demo itself) decides what to do
// about it.
func allocLarge(large *los.LargeSpace, size uintptr) (address.Address, error) {
	addr := large.Alloc(size)
	if addr.IsNull() {
		return address.Null, errors.Errorf("large object allocation of %d bytes refused: heap-growth budget exhausted", size)
	}
	return addr, nil
}

func runDemoFull(t *tunables, chainLength, garbageCount int, largeObjectSize uintptr) error {
	flags := t.flags()
	sizing := t.sizing()
	log := gclog.New(flags, newLogger(t))
	counters := &gcstats.Counters{}

	spaceSize := arena.PageAlign(sizing.YoungSpaceSize)
	oldSize := arena.PageAlign(sizing.OldGenSize)
	losSize := arena.PageAlign(16 * arena.PageSize)

	base := arena.Reserve(3*spaceSize + oldSize + losSize)
	young := younggen.NewGen(base, spaceSize)

	controller := heapconfig.NewController(uintptr(sizing.MaxHeapSize))

	oldStart := base.Offset(3 * spaceSize)
	losStart := oldStart.Offset(oldSize)
	losEnd := losStart.Offset(losSize)

	old := oldgen.NewOldGen(oldStart, losStart, losEnd, controller)
	large := los.NewLargeSpace(losStart, losEnd, controller)

	heap := address.NewRegion(base, losEnd)

	nodeSize := object.HeaderSize + 8
	cls := object.RegisterClass(&linkedClass{size: nodeSize})

	newNode := func() address.Address {
		addr := young.Bump(young.Eden(), nodeSize)
		object.HeaderAt(addr).SetClassID(cls)
		return addr
	}
	setNext := func(node, next address.Address) {
		object.SlotAt(node.Offset(object.HeaderSize)).Set(next)
	}

	var head address.Address
	for i := 0; i < chainLength; i++ {
		node := newNode()
		setNext(node, head)
		head = node
	}

	for i := 0; i < garbageCount; i++ {
		newNode() // unreachable
	}

	rootStorage := make([]byte, 8)
	rootSlot := object.SlotAt(address.FromPtr(unsafe.Pointer(&rootStorage[0])))
	rootSlot.Set(head)

	rootset := []object.Slot{rootSlot}

	var largeAddr address.Address
	if largeObjectSize > 0 {
		if largeObjectSize < object.HeaderSize {
			largeObjectSize = object.HeaderSize
		}
		blobCls := object.RegisterClass(&blobClass{size: largeObjectSize})

		var err error
		largeAddr, err = allocLarge(large, largeObjectSize)
		if err != nil {
			return err
		}
		object.HeaderAt(largeAddr).SetClassID(blobCls)

		largeRootStorage := make([]byte, 8)
		largeRoot := object.SlotAt(address.FromPtr(unsafe.Pointer(&largeRootStorage[0])))
		largeRoot.Set(largeAddr)
		rootset = append(rootset, largeRoot)
	}

	collector := full.NewCollector(full.Config{
		Heap:        heap,
		Young:       young,
		Old:         old,
		Large:       large,
		PermSpace:   address.Region{},
		Rootset:     rootset,
		Reason:      full.ReasonForced,
		Flags:       flags,
		Log:         log,
		Stats:       counters,
		MinHeapSize: 0,
		MaxHeapSize: uintptr(sizing.MaxHeapSize),
	})
	collector.Collect()

	survivor := rootSlot.Get()
	fmt.Printf("full collector: rooted chain of %d survived at %v (old-gen top now %v)\n",
		chainLength, survivor, collector.OldTop())
	if !largeAddr.IsNull() {
		fmt.Printf("large object of %d bytes survived in place at %v (committed %d)\n",
			largeObjectSize, largeAddr, large.CommittedSize())
	}
	fmt.Printf("collections=%d collect_duration=%v\n", counters.Collections, counters.CollectDuration)

	return nil
}
