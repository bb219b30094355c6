// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ltalignani/pimgavir-v2-sub000/utils"
)

// RunSpec is the validated command line of one per-sample run.
type RunSpec struct {
	R1      string
	R2      string
	Sample  string
	Threads int
	Method  Method
	Filter  bool
}

// Run is one end-to-end execution of the pipeline for one sample.  It
// owns its PhaseResult and FailureRecord collections; the phase
// registry and the filesystem artifacts are shared.
type Run struct {
	ID      string
	Spec    RunSpec
	Config  *utils.Config
	Started time.Time

	mu       sync.Mutex
	results  map[string]*PhaseResult
	order    []string // phase IDs in scheduling order
	failures []FailureRecord
}

// NewRun validates a RunSpec against the configuration and prepares
// the per-run state.  Validation failures are fatal to the whole run
// and never start a phase.
func NewRun(spec RunSpec, cfg *utils.Config) (*Run, error) {
	for _, f := range []string{spec.R1, spec.R2} {
		if info, err := os.Stat(f); err != nil || info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, f)
		}
	}
	if spec.Threads <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreadCount, spec.Threads)
	}
	if _, err := ChainsFor(spec.Method); err != nil {
		return nil, err
	}
	if spec.Filter {
		if cfg.UnwantedTaxaFile == "" {
			return nil, ErrMissingFilterConfig
		}
		if _, err := os.Stat(cfg.UnwantedTaxaFile); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingFilterConfig, cfg.UnwantedTaxaFile)
		}
	}
	return &Run{
		ID:      uuid.NewString(),
		Spec:    spec,
		Config:  cfg,
		Started: time.Now(),
		results: make(map[string]*PhaseResult),
	}, nil
}

// Vars builds the substitution map for this run.  Artifact paths of
// every registered phase are exposed as "out:<phaseID>" so a command
// template consumes exactly the path its producer declared.
func (r *Run) Vars() Vars {
	v := Vars{
		"sample":    r.Spec.Sample,
		"r1":        r.Spec.R1,
		"r2":        r.Spec.R2,
		"workdir":   r.Config.WorkDir,
		"reportdir": r.Config.ReportDir,
		"taxa":      r.Config.UnwantedTaxaFile,
	}
	if r.Spec.Filter {
		v["clean1"] = v.Expand("{workdir}/{sample}_filtered_R1.fq")
		v["clean2"] = v.Expand("{workdir}/{sample}_filtered_R2.fq")
	} else {
		v["clean1"] = v.Expand("{workdir}/{sample}_clean_fwd.fq")
		v["clean2"] = v.Expand("{workdir}/{sample}_clean_rev.fq")
	}
	for _, p := range AllPhases() {
		v["out:"+p.ID] = v.Expand(p.Produces)
	}
	return v
}

// register adds a Pending result for each phase about to be
// scheduled, preserving scheduling order for the report.
func (r *Run) register(phases []Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range phases {
		if _, ok := r.results[p.ID]; ok {
			continue
		}
		r.results[p.ID] = &PhaseResult{PhaseID: p.ID, Status: StatusPending}
		r.order = append(r.order, p.ID)
	}
}

func (r *Run) setRunning(id, logPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.results[id]
	res.Status = StatusRunning
	res.StartedAt = time.Now()
	res.LogPath = logPath
}

func (r *Run) setSkipped(id, artifact string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.results[id]
	now := time.Now()
	res.Status = StatusSkipped
	res.StartedAt = now
	res.EndedAt = now
	res.Message = "artifact present: " + artifact
}

func (r *Run) setSucceeded(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.results[id]
	res.Status = StatusSucceeded
	res.EndedAt = time.Now()
}

func (r *Run) setFailed(id string, te *ToolError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.results[id]
	if res.StartedAt.IsZero() {
		res.StartedAt = time.Now()
	}
	res.Status = StatusFailed
	res.EndedAt = time.Now()
	res.ExitCode = te.Code
	res.LogPath = te.LogPath
	res.Message = te.Error()
	r.failures = append(r.failures, FailureRecord{
		PhaseID:  id,
		Tool:     te.Tool,
		ExitCode: te.Code,
		Message:  te.Error(),
		LogPath:  te.LogPath,
	})
}

// Result returns a copy of one phase's record.
func (r *Run) Result(id string) (PhaseResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return PhaseResult{}, false
	}
	return *res, true
}

// depsSatisfied reports whether every dependency of p is Succeeded or
// Skipped, naming the first one that is not.
func (r *Run) depsSatisfied(p Phase) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dep := range p.DependsOn {
		res, ok := r.results[dep]
		if !ok || (res.Status != StatusSucceeded && res.Status != StatusSkipped) {
			return dep, false
		}
	}
	return "", true
}

// snapshot returns the results in scheduling order plus the failure
// records, for the report.
func (r *Run) snapshot() ([]PhaseResult, []FailureRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PhaseResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.results[id])
	}
	fails := make([]FailureRecord, len(r.failures))
	copy(fails, r.failures)
	// Failures sorted by when their phase started, so "first
	// failure" is well defined under concurrent chains.
	sort.SliceStable(fails, func(i, j int) bool {
		a, b := r.results[fails[i].PhaseID], r.results[fails[j].PhaseID]
		return a.StartedAt.Before(b.StartedAt)
	})
	return out, fails
}

// LogPathFor is the per-phase tool log location under the report dir.
func LogPathFor(cfg *utils.Config, sample, phaseID string) string {
	return filepath.Join(cfg.ReportDir, fmt.Sprintf("%s_%s.log", sample, phaseID))
}
