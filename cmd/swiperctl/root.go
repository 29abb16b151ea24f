package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swiperlang/swipergc/internal/gcconfig"
)

// tunables collects the flag values rootCmd binds, converted into
// gcconfig.Flags/HeapSizing once a subcommand actually runs.
type tunables struct {
	gcStress     bool
	gcDump       bool
	gcStats      bool
	gcVerify     bool
	gcDevVerbose bool

	youngSpaceSize   uint64
	oldGenSize       uint64
	maxHeapSize      uint64
	initialThreshold uint64
}

func (t *tunables) flags() gcconfig.Flags {
	return gcconfig.Flags{
		GCStress:     t.gcStress,
		GCDump:       t.gcDump,
		GCStats:      t.gcStats,
		GCVerify:     t.gcVerify,
		GCDevVerbose: t.gcDevVerbose,
	}
}

func (t *tunables) sizing() gcconfig.HeapSizing {
	sizing := gcconfig.HeapSizing{
		YoungSpaceSize:   uintptr(t.youngSpaceSize),
		OldGenSize:       uintptr(t.oldGenSize),
		MaxHeapSize:      uintptr(t.maxHeapSize),
		InitialThreshold: uintptr(t.initialThreshold),
	}
	if sizing.InitialThreshold == 0 {
		sizing.InitialThreshold = gcconfig.DefaultInitialThreshold
	}
	return sizing
}

func newLogger(t *tunables) *zap.Logger {
	if !t.gcDump && !t.gcDevVerbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func rootCmd() *cobra.Command {
	t := &tunables{}

	root := &cobra.Command{
		Use:   "swiperctl",
		Short: "drive the swiper collector cores against a synthetic workload",
	}

	root.PersistentFlags().BoolVar(&t.gcStress, "gc-stress", false, "collect on every allocation")
	root.PersistentFlags().BoolVar(&t.gcDump, "gc-dump", false, "log each collection cycle")
	root.PersistentFlags().BoolVar(&t.gcStats, "gc-stats", false, "keep cycle timers without logging")
	root.PersistentFlags().BoolVar(&t.gcVerify, "gc-verify", false, "verify marking after phase 1 (full collector only)")
	root.PersistentFlags().BoolVar(&t.gcDevVerbose, "gc-dev-verbose", false, "log every collector phase boundary")

	root.PersistentFlags().Uint64Var(&t.youngSpaceSize, "young-space-size", 64*1024, "bytes per young-gen space (eden/from/to)")
	root.PersistentFlags().Uint64Var(&t.oldGenSize, "old-gen-size", 512*1024, "bytes reserved for the old generation")
	root.PersistentFlags().Uint64Var(&t.maxHeapSize, "max-heap-size", 4*1024*1024, "shared ceiling across old gen and large object space")
	root.PersistentFlags().Uint64Var(&t.initialThreshold, "initial-threshold", uint64(gcconfig.DefaultInitialThreshold), "accepted but unused: the simple collector always starts at its default threshold")

	root.AddCommand(demoFullCmd(t), demoSimpleCmd(t))

	return root
}
