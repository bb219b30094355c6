// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"io"
	"strings"
	"text/template"
)

// JobSpec describes one SLURM job wrapping a per-sample run.  The
// orchestrator only writes the script; submission stays with the
// operator (sbatch <script>).
type JobSpec struct {
	JobName   string
	Partition string
	CPUs      int
	Memory    string // e.g. "64G"
	TimeLimit string // e.g. "48:00:00"
	LogDir    string

	// RunArgs is the pimgavir run invocation, already assembled.
	RunArgs []string
}

var jobScriptTmpl = template.Must(template.New("sbatch").Parse(`#!/bin/bash
#SBATCH --job-name={{.JobName}}
{{- if .Partition}}
#SBATCH --partition={{.Partition}}
{{- end}}
#SBATCH --cpus-per-task={{.CPUs}}
#SBATCH --mem={{.Memory}}
#SBATCH --time={{.TimeLimit}}
#SBATCH --output={{.LogDir}}/{{.JobName}}_%j.out
#SBATCH --error={{.LogDir}}/{{.JobName}}_%j.err

set -euo pipefail

pimgavir run {{.Run}}
`))

// WriteJobScript renders the sbatch script for one run.
func WriteJobScript(w io.Writer, job JobSpec) error {
	data := struct {
		JobSpec
		Run string
	}{job, strings.Join(job.RunArgs, " ")}
	return jobScriptTmpl.Execute(w, data)
}
