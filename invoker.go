// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Invocation is one fully-expanded external tool call.
type Invocation struct {
	Phase Phase

	// Argv is the expanded command line, tool name first.
	Argv []string

	// Dir is the working directory handed to the tool.
	Dir string

	// LogPath receives the tool's combined stdout/stderr.  It is
	// the only durable record of a failure's root cause beyond the
	// numeric exit code.
	LogPath string

	// ArtifactPath is the resolved location of the artifact this
	// phase is expected to leave behind.
	ArtifactPath string

	// Timeout bounds the tool's wall-clock time; zero means none.
	Timeout time.Duration

	// Threads is the core allocation substituted into the
	// command's {threads} placeholder, recorded here for the logs.
	Threads int
}

// Invoker runs one external tool and classifies its exit status.
// There is exactly no retry policy: a failed phase is re-run by the
// operator re-submitting the whole run, where the skip logic picks up
// from the last completed artifact.
type Invoker interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExecInvoker launches tools as subprocesses with the run's
// environment, capturing combined output to the per-phase log file.
type ExecInvoker struct {
	// Env overrides the subprocess environment; nil inherits.
	Env []string
}

// Run executes the invocation.  A zero exit status is success; any
// other outcome is a ToolError carrying the phase's static exit code,
// with the raw status and timeout cause preserved for the logs.
func (iv *ExecInvoker) Run(ctx context.Context, inv Invocation) error {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(inv.LogPath), 0o755); err != nil {
		return &ToolError{
			PhaseID: inv.Phase.ID, Tool: inv.Phase.Tool,
			Code: inv.Phase.ExitCode, RawExit: -1,
			Reason: "cannot create log directory", Cause: err,
		}
	}
	logf, err := os.Create(inv.LogPath)
	if err != nil {
		return &ToolError{
			PhaseID: inv.Phase.ID, Tool: inv.Phase.Tool,
			Code: inv.Phase.ExitCode, RawExit: -1,
			Reason: "cannot create log file", Cause: err,
		}
	}
	defer logf.Close()

	fmt.Fprintf(logf, "# %s: %v (threads=%d)\n", inv.Phase.ID, inv.Argv, inv.Threads)

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = iv.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Stdout = logf
	cmd.Stderr = logf

	err = cmd.Run()
	if err == nil {
		return nil
	}

	raw := -1
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		raw = ee.ExitCode()
	}
	te := &ToolError{
		PhaseID: inv.Phase.ID,
		Tool:    inv.Phase.Tool,
		Code:    inv.Phase.ExitCode,
		RawExit: raw,
		LogPath: inv.LogPath,
		Cause:   err,
	}
	if ctx.Err() == context.DeadlineExceeded {
		te.TimedOut = true
	}
	fmt.Fprintf(logf, "# %s\n", te.Error())
	return te
}
