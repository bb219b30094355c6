// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"fmt"
	"strings"
	"time"
)

// RunReport is everything the run collected: one PhaseResult per
// scheduled phase, the failure records, and each chain's terminal
// summary text when its producing phase completed.
type RunReport struct {
	RunID   string
	Sample  string
	Method  Method
	Filter  bool
	Started time.Time
	Ended   time.Time
	Chains  []Chain

	Results        []PhaseResult
	Failures       []FailureRecord
	ChainSummaries map[Chain]string
}

// ExitCode is the process exit status handed to the scheduler: the
// first failure's tool-specific code, or 0 on full success.
func (r *RunReport) ExitCode() int {
	if len(r.Failures) == 0 {
		return 0
	}
	return r.Failures[0].ExitCode
}

// Tally counts phase outcomes.
func (r *RunReport) Tally() (succeeded, skipped, failed, pending int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusSucceeded:
			succeeded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		default:
			pending++
		}
	}
	return
}

// chainTitles fixes the section order and headings of the master
// report.
var chainTitles = []struct {
	Chain Chain
	Title string
}{
	{ChainRead, "READ-BASED CLASSIFICATION"},
	{ChainAssembly, "ASSEMBLY-BASED ANALYSIS"},
	{ChainCluster, "CLUSTERING-BASED ANALYSIS"},
}

// Aggregate renders the master report: every phase's final status,
// the failures with their log locations, each chain's summary under a
// fixed section order, and the overall tally and wall-clock duration.
// Pure function over already-collected data.
func Aggregate(r *RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PIMGAVIR run report\n")
	fmt.Fprintf(&b, "sample: %s\nrun id: %s\nmethod: %s\nfilter: %v\n",
		r.Sample, r.RunID, r.Method, r.Filter)
	b.WriteString("\n== PHASES ==\n")
	for _, res := range r.Results {
		line := fmt.Sprintf("%-18s %-10s", res.PhaseID, res.Status)
		switch res.Status {
		case StatusFailed:
			line += fmt.Sprintf(" exit=%d log=%s", res.ExitCode, res.LogPath)
		case StatusSucceeded:
			line += fmt.Sprintf(" %s", res.EndedAt.Sub(res.StartedAt).Round(time.Second))
		case StatusSkipped:
			line += " " + res.Message
		}
		b.WriteString(line + "\n")
	}

	if len(r.Failures) > 0 {
		b.WriteString("\n== FAILURES ==\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "%s (%s) exit=%d\n  %s\n  log: %s\n",
				f.PhaseID, f.Tool, f.ExitCode, f.Message, f.LogPath)
		}
	}

	for _, ct := range chainTitles {
		if !containsChain(r.Chains, ct.Chain) {
			continue
		}
		fmt.Fprintf(&b, "\n== %s ==\n", ct.Title)
		if text, ok := r.ChainSummaries[ct.Chain]; ok {
			b.WriteString(strings.TrimRight(text, "\n") + "\n")
		} else {
			b.WriteString("no summary produced\n")
		}
	}

	succ, skip, fail, pend := r.Tally()
	fmt.Fprintf(&b, "\n== SUMMARY ==\n")
	fmt.Fprintf(&b, "%d succeeded, %d skipped, %d failed, %d pending\n",
		succ, skip, fail, pend)
	fmt.Fprintf(&b, "wall clock: %s\n", r.Ended.Sub(r.Started).Round(time.Second))
	fmt.Fprintf(&b, "exit code: %d\n", r.ExitCode())
	return b.String()
}

func containsChain(chains []Chain, c Chain) bool {
	for _, x := range chains {
		if x == c {
			return true
		}
	}
	return false
}
