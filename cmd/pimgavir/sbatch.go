// Copyright 2024, the PIMGAVIR contributors.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pimgavir "github.com/ltalignani/pimgavir-v2-sub000"
)

// sbatch writes the job script; it never submits.  Submitting stays a
// deliberate operator action (sbatch <script>).
func sbatchCmd() *cobra.Command {
	var (
		sample    string
		r1, r2    string
		threads   int
		method    string
		filter    bool
		partition string
		memory    string
		timeLimit string
		logDir    string
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "sbatch --sample <id> --r1 <file> --r2 <file> --method <method>",
		Short: "Write a SLURM job script wrapping one per-sample run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sample == "" || r1 == "" || r2 == "" {
				return fmt.Errorf("sbatch requires --sample, --r1 and --r2")
			}
			if _, err := pimgavir.ParseMethod(method); err != nil {
				return fmt.Errorf("%w: got %q", err, method)
			}
			runArgs := []string{r1, r2, sample, fmt.Sprint(threads), method}
			if filter {
				runArgs = append(runArgs, "--filter")
			}
			job := pimgavir.JobSpec{
				JobName:   "pimgavir_" + sample,
				Partition: partition,
				CPUs:      threads,
				Memory:    memory,
				TimeLimit: timeLimit,
				LogDir:    logDir,
				RunArgs:   runArgs,
			}
			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return pimgavir.WriteJobScript(out, job)
		},
	}
	cmd.Flags().StringVar(&sample, "sample", "", "sample identifier")
	cmd.Flags().StringVar(&r1, "r1", "", "forward read file")
	cmd.Flags().StringVar(&r2, "r2", "", "reverse read file")
	cmd.Flags().IntVar(&threads, "threads", 40, "CPU cores to request and pass to the run")
	cmd.Flags().StringVar(&method, "method", string(pimgavir.MethodAll), "method selector for the run")
	cmd.Flags().BoolVar(&filter, "filter", false, "enable the unwanted-taxa filtering step")
	cmd.Flags().StringVar(&partition, "partition", "", "SLURM partition")
	cmd.Flags().StringVar(&memory, "mem", "64G", "memory request")
	cmd.Flags().StringVar(&timeLimit, "time", "48:00:00", "wall-clock limit")
	cmd.Flags().StringVar(&logDir, "log-dir", ".", "directory for the scheduler's stdout/stderr files")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the script here instead of stdout")
	return cmd
}
