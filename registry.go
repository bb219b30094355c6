// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

// The phase registry.  Everything here is static: the three analysis
// chains, the shared pre-processing steps, the external tool each
// phase wraps, and the stable exit code reported when that tool
// fails.  Command templates are opaque to the orchestrator; they are
// expanded against the run's Vars and handed to the tool invoker.

// Exit codes, one per external tool failure point.  The job exit
// status equals the first failing phase's code so the operator can
// name the failing tool without opening the logs.
const (
	CodeTrimReads       = 81
	CodeRRNAFilter      = 82
	CodeTaxaFilter      = 83
	CodeReadClassify1   = 20
	CodeReadClassify2   = 39
	CodeReadKrona       = 30
	CodeAssemble        = 40
	CodeContigClassify  = 55
	CodeViralDetect     = 61
	CodeMapBack         = 77
	CodePolishR1        = 78
	CodePolishR2        = 79
	CodeViralQC         = 65
	CodeAnnotate        = 66
	CodeConcatReads     = 84
	CodeClusterReads    = 85
	CodeClusterClassify = 86
	CodeClusterKrona    = 87
)

var sharedPhases = []Phase{
	{
		ID:    "trim_reads",
		Chain: ChainShared,
		Tool:  "fastp",
		Args: []string{
			"-i", "{r1}", "-I", "{r2}",
			"-o", "{workdir}/{sample}_trim_R1.fastq",
			"-O", "{workdir}/{sample}_trim_R2.fastq",
			"-w", "{threads}",
			"-j", "{reportdir}/{sample}_fastp.json",
			"-h", "{reportdir}/{sample}_fastp.html",
		},
		Produces: "{workdir}/{sample}_trim_R1.fastq",
		ExitCode: CodeTrimReads,
	},
	{
		ID:        "rrna_filter",
		Chain:     ChainShared,
		DependsOn: []string{"trim_reads"},
		Tool:      "sortmerna",
		Args: []string{
			"--ref", "{db}",
			"--reads", "{out:trim_reads}",
			"--reads", "{workdir}/{sample}_trim_R2.fastq",
			"--aligned", "{workdir}/{sample}_rrna",
			"--other", "{workdir}/{sample}_clean",
			"--fastx", "--paired_in", "--out2",
			"--threads", "{threads}",
			"--workdir", "{workdir}/sortmerna",
		},
		Produces: "{workdir}/{sample}_clean_fwd.fq",
		ExitCode: CodeRRNAFilter,
	},
}

// taxaFilterPhase is injected into the shared chain only when the run
// has --filter set; it removes reads matching the unwanted-taxa list
// before any classification happens.
var taxaFilterPhase = Phase{
	ID:        "taxa_filter",
	Chain:     ChainShared,
	DependsOn: []string{"rrna_filter"},
	Tool:      "extract_kraken_reads.py",
	Args: []string{
		"-k", "{workdir}/{sample}_prefilter.kraken",
		"-s1", "{out:rrna_filter}",
		"-s2", "{workdir}/{sample}_clean_rev.fq",
		"-o", "{workdir}/{sample}_filtered_R1.fq",
		"-o2", "{workdir}/{sample}_filtered_R2.fq",
		"--taxid-file", "{taxa}",
		"--exclude", "--include-children",
	},
	Produces: "{workdir}/{sample}_filtered_R1.fq",
	ExitCode: CodeTaxaFilter,
}

var readPhases = []Phase{
	{
		ID:    "read_classify_1",
		Chain: ChainRead,
		Tool:  "kraken2",
		Args: []string{
			"--db", "{db}", "--threads", "{threads}",
			"--paired", "{clean1}", "{clean2}",
			"--report", "{reportdir}/{sample}_kraken2_report.txt",
			"--output", "{workdir}/{sample}_kraken2.out",
		},
		Produces: "{reportdir}/{sample}_kraken2_report.txt",
		ExitCode: CodeReadClassify1,
		Summary:  true,
	},
	{
		ID:        "read_classify_2",
		Chain:     ChainRead,
		DependsOn: []string{"read_classify_1"},
		Tool:      "kaiju",
		Args: []string{
			"-z", "{threads}",
			"-t", "{db}/nodes.dmp", "-f", "{db}/kaiju_db.fmi",
			"-i", "{clean1}", "-j", "{clean2}",
			"-o", "{workdir}/{sample}_kaiju.out",
		},
		Produces: "{workdir}/{sample}_kaiju.out",
		ExitCode: CodeReadClassify2,
	},
	{
		ID:        "read_krona",
		Chain:     ChainRead,
		DependsOn: []string{"read_classify_2"},
		Tool:      "ktImportTaxonomy",
		Args: []string{
			"-q", "2", "-t", "3",
			"-o", "{reportdir}/{sample}_read_krona.html",
			"{workdir}/{sample}_kraken2.out",
		},
		Produces: "{reportdir}/{sample}_read_krona.html",
		ExitCode: CodeReadKrona,
	},
}

var assemblyPhases = []Phase{
	{
		ID:    "assemble",
		Chain: ChainAssembly,
		Tool:  "megahit",
		Args: []string{
			"-1", "{clean1}", "-2", "{clean2}",
			"-t", "{threads}",
			"-o", "{workdir}/{sample}_megahit",
			"--out-prefix", "{sample}",
		},
		Produces: "{workdir}/{sample}_megahit/{sample}.contigs.fa",
		ExitCode: CodeAssemble,
	},
	{
		ID:        "contig_classify",
		Chain:     ChainAssembly,
		DependsOn: []string{"assemble"},
		Tool:      "kraken2",
		Args: []string{
			"--db", "{db}", "--threads", "{threads}",
			"--report", "{reportdir}/{sample}_contig_kraken2_report.txt",
			"--output", "{workdir}/{sample}_contig_kraken2.out",
			"{out:assemble}",
		},
		Produces: "{reportdir}/{sample}_contig_kraken2_report.txt",
		ExitCode: CodeContigClassify,
	},
	{
		ID:        "viral_detect",
		Chain:     ChainAssembly,
		DependsOn: []string{"contig_classify"},
		Tool:      "virsorter",
		Args: []string{
			"run", "-i", "{out:assemble}",
			"-w", "{workdir}/{sample}_virsorter",
			"--db-dir", "{db}",
			"-j", "{threads}", "all",
		},
		Produces: "{workdir}/{sample}_virsorter/final-viral-combined.fa",
		ExitCode: CodeViralDetect,
	},
	{
		ID:        "map_back",
		Chain:     ChainAssembly,
		DependsOn: []string{"viral_detect"},
		Tool:      "minimap2",
		Args: []string{
			"-ax", "sr", "-t", "{threads}",
			"-o", "{workdir}/{sample}_viral.sam",
			"{out:viral_detect}", "{clean1}", "{clean2}",
		},
		Produces: "{workdir}/{sample}_viral.sam",
		ExitCode: CodeMapBack,
	},
	{
		ID:        "polish_r1",
		Chain:     ChainAssembly,
		DependsOn: []string{"map_back"},
		Tool:      "pilon",
		Args: []string{
			"--genome", "{out:viral_detect}",
			"--frags", "{out:map_back}",
			"--output", "{sample}_polish1",
			"--outdir", "{workdir}",
		},
		Produces: "{workdir}/{sample}_polish1.fasta",
		ExitCode: CodePolishR1,
	},
	{
		ID:        "polish_r2",
		Chain:     ChainAssembly,
		DependsOn: []string{"polish_r1"},
		Tool:      "pilon",
		Args: []string{
			"--genome", "{out:polish_r1}",
			"--frags", "{out:map_back}",
			"--output", "{sample}_polish2",
			"--outdir", "{workdir}",
		},
		Produces: "{workdir}/{sample}_polish2.fasta",
		ExitCode: CodePolishR2,
	},
	{
		ID:        "viral_qc",
		Chain:     ChainAssembly,
		DependsOn: []string{"polish_r2"},
		Tool:      "checkv",
		Args: []string{
			"end_to_end", "{out:polish_r2}",
			"{workdir}/{sample}_checkv",
			"-d", "{db}", "-t", "{threads}",
		},
		Produces: "{workdir}/{sample}_checkv/quality_summary.tsv",
		ExitCode: CodeViralQC,
		Summary:  true,
	},
	{
		ID:        "annotate",
		Chain:     ChainAssembly,
		DependsOn: []string{"viral_qc"},
		Tool:      "DRAM-v.py",
		Args: []string{
			"annotate", "-i", "{out:polish_r2}",
			"-o", "{workdir}/{sample}_dramv",
			"--threads", "{threads}",
		},
		Produces: "{workdir}/{sample}_dramv/annotations.tsv",
		ExitCode: CodeAnnotate,
	},
}

var clusterPhases = []Phase{
	{
		// concat_reads re-invokes this binary's own concat-reads
		// subcommand, the same way the driver's siblings are
		// reached: by name on PATH.
		ID:    "concat_reads",
		Chain: ChainCluster,
		Tool:  "pimgavir",
		Args: []string{
			"concat-reads", "{clean1}", "{clean2}",
			"{workdir}/{sample}_concatenated.fasta",
		},
		Produces: "{workdir}/{sample}_concatenated.fasta",
		ExitCode: CodeConcatReads,
	},
	{
		ID:        "cluster_reads",
		Chain:     ChainCluster,
		DependsOn: []string{"concat_reads"},
		Tool:      "cd-hit-est",
		Args: []string{
			"-i", "{out:concat_reads}",
			"-o", "{workdir}/{sample}_clusters.fasta",
			"-c", "0.95", "-n", "10", "-M", "0",
			"-T", "{threads}",
		},
		Produces: "{workdir}/{sample}_clusters.fasta",
		ExitCode: CodeClusterReads,
	},
	{
		ID:        "cluster_classify",
		Chain:     ChainCluster,
		DependsOn: []string{"cluster_reads"},
		Tool:      "kraken2",
		Args: []string{
			"--db", "{db}", "--threads", "{threads}",
			"--report", "{reportdir}/{sample}_cluster_kraken2_report.txt",
			"--output", "{workdir}/{sample}_cluster_kraken2.out",
			"{out:cluster_reads}",
		},
		Produces: "{reportdir}/{sample}_cluster_kraken2_report.txt",
		ExitCode: CodeClusterClassify,
		Summary:  true,
	},
	{
		ID:        "cluster_krona",
		Chain:     ChainCluster,
		DependsOn: []string{"cluster_classify"},
		Tool:      "ktImportTaxonomy",
		Args: []string{
			"-q", "2", "-t", "3",
			"-o", "{reportdir}/{sample}_cluster_krona.html",
			"{workdir}/{sample}_cluster_kraken2.out",
		},
		Produces: "{reportdir}/{sample}_cluster_krona.html",
		ExitCode: CodeClusterKrona,
	},
}

// PhasesFor returns the ordered phase list of one analysis chain.
// The returned slice is a copy; the registry itself is read-only and
// shared by every concurrent run in the process.
func PhasesFor(c Chain) ([]Phase, error) {
	var src []Phase
	switch c {
	case ChainShared:
		src = sharedPhases
	case ChainRead:
		src = readPhases
	case ChainAssembly:
		src = assemblyPhases
	case ChainCluster:
		src = clusterPhases
	default:
		return nil, ErrUnknownChain
	}
	out := make([]Phase, len(src))
	copy(out, src)
	return out, nil
}

// SharedPhases returns the pre-processing chain, with the
// unwanted-taxa filter step injected when the run asked for it.
func SharedPhases(filter bool) []Phase {
	out := make([]Phase, len(sharedPhases))
	copy(out, sharedPhases)
	if filter {
		out = append(out, taxaFilterPhase)
	}
	return out
}

// AllPhases returns every registered phase, shared chain first.  Used
// for artifact-path resolution and the phases listing command.
func AllPhases() []Phase {
	var out []Phase
	out = append(out, sharedPhases...)
	out = append(out, taxaFilterPhase)
	out = append(out, readPhases...)
	out = append(out, assemblyPhases...)
	out = append(out, clusterPhases...)
	return out
}

// LookupPhase finds a phase by ID.
func LookupPhase(id string) (Phase, bool) {
	for _, p := range AllPhases() {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}
