// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// summaryCap bounds how much of a chain summary artifact is folded
// into the master report.
const summaryCap = 64 * 1024

// Controller drives one per-sample run end to end: preflight, the
// shared pre-processing chain, the selected analysis chains, report
// aggregation and the optional transfer to permanent storage.
type Controller struct {
	Invoker   Invoker
	Resolver  Resolver
	Transport Transport
	Logger    *log.Logger
}

func (c *Controller) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

// Execute runs the pipeline for one sample.  Tool failures do not
// produce an error here; they are recorded in the report, whose
// ExitCode is handed to the scheduler.  The returned error covers
// setup problems only (directories, scratch space, databases).
func (c *Controller) Execute(ctx context.Context, run *Run) (*RunReport, error) {
	cfg := run.Config
	for _, dir := range []string{cfg.WorkDir, cfg.ReportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := checkScratch(cfg.WorkDir, cfg.MinScratchBytes); err != nil {
		return nil, err
	}

	if c.Logger == nil {
		logPath := filepath.Join(cfg.ReportDir, run.Spec.Sample+"_run.log")
		logf, err := os.Create(logPath)
		if err != nil {
			return nil, fmt.Errorf("create run log: %w", err)
		}
		defer logf.Close()
		c.Logger = log.New(logf, "", log.LstdFlags)
	}

	chains, err := ChainsFor(run.Spec.Method)
	if err != nil {
		return nil, err
	}
	policy, err := ParsePolicy(cfg.OnChainFailure)
	if err != nil {
		return nil, err
	}

	shared := SharedPhases(run.Spec.Filter)
	chainPhases := make(map[Chain][]Phase, len(chains))
	run.register(shared)
	for _, ch := range chains {
		phases, err := PhasesFor(ch)
		if err != nil {
			return nil, err
		}
		chainPhases[ch] = phases
		run.register(phases)
	}
	if err := checkDatabases(cfg.Databases, shared, chainPhases); err != nil {
		return nil, err
	}

	be := &BranchExecutor{Invoker: c.Invoker, Resolver: c.Resolver, Logger: c.Logger}

	c.logf("run %s: sample=%s method=%s threads=%d filter=%v",
		run.ID, run.Spec.Sample, run.Spec.Method, run.Spec.Threads, run.Spec.Filter)

	// Pre-processing runs once, with the full thread budget.  No
	// chain may start without its artifact, so a failure here ends
	// the run immediately.
	if err := be.RunChain(ctx, run, shared, run.Spec.Threads); err != nil {
		c.logf("pre-processing failed, run aborted: %v", err)
		return c.finish(ctx, run, chains), nil
	}

	if err := be.RunChains(ctx, run, chains, chainPhases, policy); err != nil {
		c.logf("run aborted by chain-failure policy: %v", err)
	}
	return c.finish(ctx, run, chains), nil
}

// finish collects results into the report, writes the master summary
// and hands the report directory to the storage transport on full
// success.
func (c *Controller) finish(ctx context.Context, run *Run, chains []Chain) *RunReport {
	results, failures := run.snapshot()
	rep := &RunReport{
		RunID:    run.ID,
		Sample:   run.Spec.Sample,
		Method:   run.Spec.Method,
		Filter:   run.Spec.Filter,
		Started:  run.Started,
		Ended:    time.Now(),
		Results:  results,
		Failures: failures,
		Chains:   chains,
	}
	rep.ChainSummaries = c.collectSummaries(run, chains)

	text := Aggregate(rep)
	finalPath := filepath.Join(run.Config.ReportDir, run.Spec.Sample+"_final_report.txt")
	if err := os.WriteFile(finalPath, []byte(text), 0o644); err != nil {
		c.logf("write final report: %v", err)
	} else {
		c.logf("final report written to %s", finalPath)
	}

	if rep.ExitCode() == 0 && c.Transport != nil {
		if err := c.Transport.Store(ctx, run.Config.ReportDir, run.Spec.Sample); err != nil {
			c.logf("transfer to permanent storage failed: %v", err)
		} else {
			c.logf("results transferred to permanent storage")
		}
	}
	return rep
}

// collectSummaries reads each chain's terminal summary artifact, when
// the producing phase completed.
func (c *Controller) collectSummaries(run *Run, chains []Chain) map[Chain]string {
	out := make(map[Chain]string)
	vars := run.Vars()
	for _, ch := range chains {
		phases, err := PhasesFor(ch)
		if err != nil {
			continue
		}
		for i := len(phases) - 1; i >= 0; i-- {
			p := phases[i]
			if !p.Summary {
				continue
			}
			res, ok := run.Result(p.ID)
			if !ok || (res.Status != StatusSucceeded && res.Status != StatusSkipped) {
				continue
			}
			text, err := readCapped(vars.Expand(p.Produces), summaryCap)
			if err != nil {
				c.logf("read summary for chain %s: %v", ch, err)
				continue
			}
			out[ch] = text
			break
		}
	}
	return out
}

func readCapped(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// checkScratch refuses to start a run when the scratch filesystem has
// less free space than the configured minimum.
func checkScratch(dir string, min uint64) error {
	if min == 0 {
		return nil
	}
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < min {
		return fmt.Errorf("%w: %d bytes free, %d required", ErrScratchSpace, free, min)
	}
	return nil
}

// checkDatabases verifies every scheduled phase whose command uses
// {db} has a database configured for its tool.
func checkDatabases(dbs map[string]string, shared []Phase, chains map[Chain][]Phase) error {
	check := func(phases []Phase) error {
		for _, p := range phases {
			if !usesDB(p) {
				continue
			}
			if dbs[p.Tool] == "" {
				return fmt.Errorf("%w %s (phase %s)", ErrMissingDatabase, p.Tool, p.ID)
			}
		}
		return nil
	}
	if err := check(shared); err != nil {
		return err
	}
	for _, phases := range chains {
		if err := check(phases); err != nil {
			return err
		}
	}
	return nil
}

func usesDB(p Phase) bool {
	for _, a := range p.Args {
		if strings.Contains(a, "{db}") {
			return true
		}
	}
	return false
}
