// Copyright 2024, the PIMGAVIR contributors.

// pimgavir is the per-sample driver of the PIMGAVIR viral
// metagenomics pipeline.  One invocation runs one sample through the
// selected analysis chains on the node SLURM handed it:
//
//	pimgavir run reads_R1.fastq reads_R2.fastq sample42 40 ALL --filter
//
// The process exit status is 0 on full success, 1 on a validation
// failure, and the failing tool's registered code otherwise, so the
// scheduler's job state alone names the failing tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pimgavir "github.com/ltalignani/pimgavir-v2-sub000"
)

func main() {
	root := &cobra.Command{
		Use:           "pimgavir",
		Short:         "Per-sample driver for the PIMGAVIR viral metagenomics pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), concatReadsCmd(), phasesCmd(), sbatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pimgavir:", err)
		os.Exit(pimgavir.ExitCodeFor(err))
	}
}
