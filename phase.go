// Copyright 2024, the PIMGAVIR contributors.

// Package pimgavir drives one per-sample run of the PIMGAVIR viral
// metagenomics pipeline.  The scientific work (trimming, rRNA
// filtering, assembly, classification, viral genome recovery,
// annotation) is performed by external tools invoked as subprocesses;
// this package only sequences them, skips steps whose output already
// exists, splits the thread budget across the three analysis chains,
// and turns the first tool failure into a stable process exit code.
package pimgavir

import (
	"time"
)

// Chain identifies one of the top-level analysis paths, or the shared
// pre-processing steps that run ahead of all of them.
type Chain string

const (
	ChainShared   Chain = "shared"
	ChainRead     Chain = "read"
	ChainAssembly Chain = "assembly"
	ChainCluster  Chain = "cluster"
)

// Method is the per-run chain selector from the command line.
type Method string

const (
	MethodAll      Method = "ALL"
	MethodRead     Method = "--read_based"
	MethodAssembly Method = "--ass_based"
	MethodCluster  Method = "--clust_based"
)

// ChainsFor returns the chains implied by a method selector, in the
// fixed report order.  The shared chain is not included; it is always
// run first, exactly once.
func ChainsFor(m Method) ([]Chain, error) {
	switch m {
	case MethodAll:
		return []Chain{ChainRead, ChainAssembly, ChainCluster}, nil
	case MethodRead:
		return []Chain{ChainRead}, nil
	case MethodAssembly:
		return []Chain{ChainAssembly}, nil
	case MethodCluster:
		return []Chain{ChainCluster}, nil
	}
	return nil, ErrInvalidMethod
}

// ParseMethod maps a command-line token to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodAll, MethodRead, MethodAssembly, MethodCluster:
		return Method(s), nil
	}
	return "", ErrInvalidMethod
}

// Status is the lifecycle state of one phase within a run.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusSkipped   Status = "Skipped"
	StatusRunning   Status = "Running"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
)

// Phase declares one processing step: the external tool it wraps, the
// phases whose artifacts must exist first, and the artifact it leaves
// behind.  Phases are declared statically in the registry and never
// mutated; per-run state lives in PhaseResult.
type Phase struct {
	// ID is the stable phase identifier used in dependsOn lists,
	// log file names and reports.
	ID string

	// Chain the phase belongs to, or ChainShared for the
	// pre-processing steps every chain requires.
	Chain Chain

	// DependsOn lists phase IDs whose artifacts must exist before
	// this phase may start.
	DependsOn []string

	// Tool is the external program name, resolved on PATH.
	Tool string

	// Args is the argument template.  Placeholders of the form
	// {name} are expanded per run; see Vars.
	Args []string

	// Produces is the path template of the artifact whose
	// presence marks this phase complete.
	Produces string

	// ExitCode is the stable process exit code reported when this
	// phase's tool fails, one distinct code per failure point so
	// the operator can identify the failing tool from the job exit
	// status alone.
	ExitCode int

	// Summary marks the phase whose artifact is a human-readable
	// chain summary, picked up by the report aggregator.
	Summary bool
}

// PhaseResult is the per-run record of one phase.  A phase moves to
// Running only after every dependency is Succeeded or Skipped; once a
// phase Fails, nothing downstream of it starts.
type PhaseResult struct {
	PhaseID   string
	Status    Status
	ExitCode  int // tool-specific code, set only when Failed
	StartedAt time.Time
	EndedAt   time.Time
	LogPath   string
	Message   string
}

// FailureRecord is the operator-facing record of one failed phase.
type FailureRecord struct {
	PhaseID  string
	Tool     string
	ExitCode int
	Message  string
	LogPath  string
}
