// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// Policy decides what happens to sibling chains when one chain fails
// under the ALL selector.  The original workers disagreed on this
// (fire-and-forget vs. all-or-nothing), so it is explicit here.
type Policy string

const (
	// PolicyContinue lets unaffected chains run to completion; the
	// run's exit status is still the first failure's code.
	PolicyContinue Policy = "continue"

	// PolicyAbort cancels every in-flight chain as soon as any
	// chain reports a failure.
	PolicyAbort Policy = "abort"
)

// ParsePolicy validates a policy name, defaulting empty to continue.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyContinue, nil
	case PolicyContinue, PolicyAbort:
		return Policy(s), nil
	}
	return "", fmt.Errorf("invalid chain-failure policy %q", s)
}

// SplitThreads divides the run's thread budget across n concurrent
// chains: floor division, remainder dropped (40 across 3 chains is 13
// each), never below one thread per chain.
func SplitThreads(budget, n int) int {
	if n <= 0 {
		return budget
	}
	per := budget / n
	if per < 1 {
		per = 1
	}
	return per
}

// BranchExecutor runs one or more phase chains, each as a sequential
// task, concurrently when more than one chain is selected.
type BranchExecutor struct {
	Invoker  Invoker
	Resolver Resolver
	Logger   *log.Logger
}

func (e *BranchExecutor) logf(format string, args ...interface{}) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// RunChains executes the selected chains.  Every spawned chain is
// joined before it returns, whatever the policy; the returned error
// is the first chain failure under PolicyAbort, nil otherwise (the
// run records carry the failures either way).
func (e *BranchExecutor) RunChains(ctx context.Context, run *Run, chains []Chain, phases map[Chain][]Phase, policy Policy) error {
	threads := SplitThreads(run.Spec.Threads, len(chains))

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chains {
		c := c
		g.Go(func() error {
			err := e.RunChain(gctx, run, phases[c], threads)
			if err != nil && policy == PolicyAbort {
				return err
			}
			if err != nil {
				e.logf("chain %s failed, continuing siblings: %v", c, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// RunChain executes one chain's phases strictly in dependency order
// with the given thread allocation.  The first failure aborts the
// remainder of the chain; earlier phases whose artifact is already on
// disk are Skipped without invoking their tool.
func (e *BranchExecutor) RunChain(ctx context.Context, run *Run, phases []Phase, threads int) error {
	base := run.Vars()
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			// Cancelled by a sibling chain's failure or by the
			// scheduler; remaining phases stay Pending.
			return err
		}

		if dep, ok := run.depsSatisfied(p); !ok {
			te := &ToolError{
				PhaseID: p.ID, Tool: p.Tool, Code: p.ExitCode,
				RawExit: -1,
				Reason:  "missing prerequisite artifact from phase " + dep,
			}
			run.setFailed(p.ID, te)
			e.logf("%s: %v", p.ID, te)
			return te
		}

		vars := make(Vars, len(base)+2)
		for k, v := range base {
			vars[k] = v
		}
		vars["threads"] = strconv.Itoa(threads)
		vars["db"] = run.Config.Databases[p.Tool]

		art := Artifact{PathTemplate: p.Produces}
		if e.Resolver.Exists(art, vars) {
			run.setSkipped(p.ID, art.Resolve(vars))
			e.logf("%s: artifact present, skipping", p.ID)
			continue
		}

		logPath := LogPathFor(run.Config, run.Spec.Sample, p.ID)
		run.setRunning(p.ID, logPath)
		e.logf("Starting %s: %s", p.ID, p.Tool)

		inv := Invocation{
			Phase:        p,
			Argv:         append([]string{p.Tool}, vars.ExpandAll(p.Args)...),
			Dir:          run.Config.WorkDir,
			LogPath:      logPath,
			ArtifactPath: art.Resolve(vars),
			Timeout:      time.Duration(run.Config.PhaseTimeout),
			Threads:      threads,
		}
		if err := e.Invoker.Run(ctx, inv); err != nil {
			te := asToolError(err, p, logPath)
			run.setFailed(p.ID, te)
			e.logf("%s failed: %v", p.ID, te)
			return te
		}
		run.setSucceeded(p.ID)
		e.logf("%s done", p.ID)
	}
	return nil
}

// asToolError coerces an invoker error into a ToolError carrying the
// phase's static exit code.
func asToolError(err error, p Phase, logPath string) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{
		PhaseID: p.ID, Tool: p.Tool, Code: p.ExitCode,
		RawExit: -1, LogPath: logPath,
		Reason: "tool did not complete", Cause: err,
	}
}
