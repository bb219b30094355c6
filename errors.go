// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"errors"
	"fmt"
)

// Validation errors abort a run before any phase starts and always
// surface as process exit code 1.
var (
	ErrUnknownChain        = errors.New("unknown chain")
	ErrInputNotFound       = errors.New("input read file not found")
	ErrInvalidThreadCount  = errors.New("thread count must be a positive integer")
	ErrInvalidMethod       = errors.New("method must be ALL, --read_based, --ass_based or --clust_based")
	ErrMissingFilterConfig = errors.New("--filter requires an unwanted-taxa list file in the configuration")
	ErrMissingDatabase     = errors.New("no database configured for tool")
	ErrScratchSpace        = errors.New("insufficient free space on scratch")
)

// IsValidation reports whether err belongs to the validation error
// class (fatal to the whole run, exit code 1).
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrUnknownChain, ErrInputNotFound, ErrInvalidThreadCount,
		ErrInvalidMethod, ErrMissingFilterConfig, ErrMissingDatabase,
		ErrScratchSpace,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// ToolError records a failed tool invocation.  Code is the stable
// per-tool exit code from the phase registry; RawExit is whatever the
// process actually returned, kept for the logs only.
type ToolError struct {
	PhaseID  string
	Tool     string
	Code     int
	RawExit  int
	LogPath  string
	TimedOut bool
	Reason   string
	Cause    error
}

func (e *ToolError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("phase %s: %s timed out (exit code %d)", e.PhaseID, e.Tool, e.Code)
	case e.Reason != "":
		return fmt.Sprintf("phase %s: %s (exit code %d)", e.PhaseID, e.Reason, e.Code)
	}
	return fmt.Sprintf("phase %s: %s exited with status %d (exit code %d)", e.PhaseID, e.Tool, e.RawExit, e.Code)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// ExitCodeFor maps a run error onto the process exit status handed to
// the job scheduler: the failing tool's code, or 1 for validation
// failures and anything unclassified.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return 1
}
