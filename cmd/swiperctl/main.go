// Command swiperctl exercises the collector end to end: it builds a demo
// heap under either runtime configuration, runs a fixed allocation
// workload through it, forces a collection, and reports the resulting
// counters. It is not a JIT or a language runtime: the object graphs it
// builds are synthetic, standing in for what a real embedder's mutator
// would otherwise supply.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
