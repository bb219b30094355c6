// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarsExpand(t *testing.T) {
	v := Vars{"sample": "s1", "workdir": "/scratch"}
	require.Equal(t, "/scratch/s1_clean.fq", v.Expand("{workdir}/{sample}_clean.fq"))
	require.Equal(t, "plain", v.Expand("plain"))

	// Unknown placeholders stay visible instead of vanishing.
	require.Equal(t, "/scratch/{oops}.txt", v.Expand("{workdir}/{oops}.txt"))
}

func TestVarsExpandAll(t *testing.T) {
	v := Vars{"threads": "8"}
	got := v.ExpandAll([]string{"-t", "{threads}", "-x"})
	require.Equal(t, []string{"-t", "8", "-x"}, got)
}

func TestResolverExists(t *testing.T) {
	dir := t.TempDir()
	v := Vars{"workdir": dir, "sample": "s1"}
	a := Artifact{PathTemplate: "{workdir}/{sample}.out"}
	r := Resolver{}

	require.False(t, r.Exists(a, v), "missing file")

	path := a.Resolve(v)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.False(t, r.Exists(a, v), "empty file does not count as done")

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.True(t, r.Exists(a, v))
}

func TestResolverIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	r := Resolver{}
	require.False(t, r.Exists(Artifact{PathTemplate: sub}, Vars{}))
}

func TestRunVarsOutEntries(t *testing.T) {
	cfg := testConfig(t)
	run := testRun(t, cfg, MethodAssembly, 4)
	v := run.Vars()

	contigs, ok := v["out:assemble"]
	require.True(t, ok)
	require.Equal(t, cfg.WorkDir+"/s1_megahit/s1.contigs.fa", contigs)

	// The classifier consumes exactly the assembler's declared
	// output path; no second spelling of the file name exists.
	args := v.ExpandAll(assemblyPhases[1].Args)
	require.Contains(t, args, contigs)
}

func TestRunVarsFilterSwitchesCleanReads(t *testing.T) {
	cfg := testConfig(t)
	taxa := filepath.Join(t.TempDir(), "unwanted.txt")
	require.NoError(t, os.WriteFile(taxa, []byte("9606\n"), 0o644))
	cfg.UnwantedTaxaFile = taxa

	run := testRun(t, cfg, MethodRead, 4)
	require.Contains(t, run.Vars()["clean1"], "_clean_fwd.fq")

	run.Spec.Filter = true
	require.Contains(t, run.Vars()["clean1"], "_filtered_R1.fq")
}
