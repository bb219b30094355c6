// Copyright 2024, the PIMGAVIR contributors.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	pimgavir "github.com/ltalignani/pimgavir-v2-sub000"
	"github.com/ltalignani/pimgavir-v2-sub000/utils"
)

// The method selectors are spelled with leading dashes
// (--read_based), so the run command parses its own arguments instead
// of letting cobra treat them as flags.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <R1> <R2> <sampleID> <threadCount> <method> [--filter]",
		Short: "Run the pipeline for one sample",
		Long: `Run executes the per-sample pipeline: shared pre-processing
(adapter trimming, rRNA filtering, optional unwanted-taxa filtering),
then the analysis chains selected by <method>: ALL, --read_based,
--ass_based or --clust_based.  Under ALL the three chains run
concurrently, each with threadCount/3 threads (floor; the remainder
is left idle).

Options:
  --filter                     enable the unwanted-taxa filtering step
  --config <file>              YAML configuration file
  --on-chain-failure <policy>  continue (default) or abort siblings
                               when one chain fails under ALL`,
		DisableFlagParsing: true,
		RunE:               runMain,
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	var (
		pos        []string
		filter     bool
		configPath string
		policy     string
	)
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-h" || a == "--help":
			return cmd.Help()
		case a == "--filter":
			filter = true
		case a == "--config":
			i++
			if i == len(args) {
				return fmt.Errorf("--config requires a file argument")
			}
			configPath = args[i]
		case strings.HasPrefix(a, "--config="):
			configPath = strings.TrimPrefix(a, "--config=")
		case a == "--on-chain-failure":
			i++
			if i == len(args) {
				return fmt.Errorf("--on-chain-failure requires a policy argument")
			}
			policy = args[i]
		case strings.HasPrefix(a, "--on-chain-failure="):
			policy = strings.TrimPrefix(a, "--on-chain-failure=")
		default:
			pos = append(pos, a)
		}
	}
	if len(pos) != 5 {
		return fmt.Errorf("run wants <R1> <R2> <sampleID> <threadCount> <method>, got %d arguments", len(pos))
	}

	threads, err := strconv.Atoi(pos[3])
	if err != nil {
		return fmt.Errorf("%w: %q", pimgavir.ErrInvalidThreadCount, pos[3])
	}
	method, err := pimgavir.ParseMethod(pos[4])
	if err != nil {
		return fmt.Errorf("%w: got %q", err, pos[4])
	}

	cfg := utils.DefaultConfig()
	if configPath != "" {
		cfg, err = utils.ReadConfig(configPath)
		if err != nil {
			return err
		}
	}
	cfg.Normalize()
	if policy != "" {
		cfg.OnChainFailure = policy
	}

	transport, err := pimgavir.NewTransport(cfg.Transfer)
	if err != nil {
		return err
	}

	run, err := pimgavir.NewRun(pimgavir.RunSpec{
		R1:      pos[0],
		R2:      pos[1],
		Sample:  pos[2],
		Threads: threads,
		Method:  method,
		Filter:  filter,
	}, cfg)
	if err != nil {
		return err
	}

	// SLURM sends SIGTERM ahead of the hard kill; cancelling the
	// context terminates in-flight tools cleanly.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := &pimgavir.Controller{
		Invoker:   &pimgavir.ExecInvoker{},
		Transport: transport,
	}
	rep, err := ctrl.Execute(ctx, run)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), pimgavir.Aggregate(rep))
	os.Exit(rep.ExitCode())
	return nil
}
