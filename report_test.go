// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleReport() *RunReport {
	start := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	return &RunReport{
		RunID:   "run-1",
		Sample:  "s1",
		Method:  MethodAll,
		Started: start,
		Ended:   start.Add(90 * time.Minute),
		Chains:  []Chain{ChainRead, ChainAssembly, ChainCluster},
		Results: []PhaseResult{
			{PhaseID: "trim_reads", Status: StatusSucceeded, StartedAt: start, EndedAt: start.Add(time.Minute)},
			{PhaseID: "rrna_filter", Status: StatusSkipped, Message: "artifact present: x"},
			{PhaseID: "read_classify_1", Status: StatusFailed, ExitCode: 20, LogPath: "/r/s1_read_classify_1.log"},
			{PhaseID: "assemble", Status: StatusSucceeded, StartedAt: start, EndedAt: start.Add(time.Hour)},
			{PhaseID: "concat_reads", Status: StatusPending},
		},
		Failures: []FailureRecord{
			{PhaseID: "read_classify_1", Tool: "kraken2", ExitCode: 20,
				Message: "kraken2 exited with status 2", LogPath: "/r/s1_read_classify_1.log"},
		},
		ChainSummaries: map[Chain]string{
			ChainAssembly: "contigs: 1234\nviral: 56\n",
		},
	}
}

func TestReportExitCode(t *testing.T) {
	rep := sampleReport()
	require.Equal(t, 20, rep.ExitCode())
	rep.Failures = nil
	require.Equal(t, 0, rep.ExitCode())
}

func TestReportTally(t *testing.T) {
	succ, skip, fail, pend := sampleReport().Tally()
	require.Equal(t, 2, succ)
	require.Equal(t, 1, skip)
	require.Equal(t, 1, fail)
	require.Equal(t, 1, pend)
}

func TestAggregateSectionsAndTally(t *testing.T) {
	text := Aggregate(sampleReport())

	// Fixed section order, regardless of completion order.
	read := strings.Index(text, "READ-BASED CLASSIFICATION")
	asm := strings.Index(text, "ASSEMBLY-BASED ANALYSIS")
	clust := strings.Index(text, "CLUSTERING-BASED ANALYSIS")
	require.True(t, read >= 0 && asm >= 0 && clust >= 0)
	require.Less(t, read, asm)
	require.Less(t, asm, clust)

	require.Contains(t, text, "contigs: 1234")
	require.Contains(t, text, "no summary produced")
	require.Contains(t, text, "2 succeeded, 1 skipped, 1 failed, 1 pending")
	require.Contains(t, text, "wall clock: 1h30m0s")
	require.Contains(t, text, "exit code: 20")
	require.Contains(t, text, "log=/r/s1_read_classify_1.log")
}

func TestAggregateSingleChain(t *testing.T) {
	rep := sampleReport()
	rep.Chains = []Chain{ChainRead}
	text := Aggregate(rep)
	require.Contains(t, text, "READ-BASED CLASSIFICATION")
	require.NotContains(t, text, "ASSEMBLY-BASED ANALYSIS")
}
