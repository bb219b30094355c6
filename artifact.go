// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"os"
	"strings"
)

// Vars holds the per-run values substituted into phase command and
// artifact templates.  Besides the run-level keys (sample, r1, r2,
// clean1, clean2, workdir, reportdir, db, taxa, threads), it carries
// one "out:<phaseID>" entry per registered phase, resolving to that
// phase's artifact path.  Routing downstream inputs through the
// producing phase's artifact keeps a single owner for every
// intermediate file path.
type Vars map[string]string

// Expand substitutes every {key} placeholder in tmpl from vars.
// Unknown placeholders are left in place so a bad template shows up
// verbatim in the logs instead of silently collapsing to "".
func (v Vars) Expand(tmpl string) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(tmpl, '{')
		if i < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		j := strings.IndexByte(tmpl[i:], '}')
		if j < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		key := tmpl[i+1 : i+j]
		b.WriteString(tmpl[:i])
		if val, ok := v[key]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(tmpl[i : i+j+1])
		}
		tmpl = tmpl[i+j+1:]
	}
}

// ExpandAll expands a whole argument template.
func (v Vars) ExpandAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = v.Expand(a)
	}
	return out
}

// Artifact is a declared output location.  The orchestrator never
// interprets artifact contents; presence of a non-empty file is the
// only completion signal, so an artifact left by a previous
// interrupted run of the same sample is trusted as-is.
type Artifact struct {
	PathTemplate string
}

// Resolve returns the concrete path for one run.
func (a Artifact) Resolve(vars Vars) string {
	return vars.Expand(a.PathTemplate)
}

// Resolver decides whether a phase's declared artifact already
// exists, in which case the phase is Skipped.
type Resolver struct{}

// Exists reports whether the artifact resolves to a non-empty regular
// file.  Read-only probe; content is never validated.
func (Resolver) Exists(a Artifact, vars Vars) bool {
	info, err := os.Stat(a.Resolve(vars))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
