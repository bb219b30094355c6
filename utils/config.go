// Copyright 2024, the PIMGAVIR contributors.

package utils

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so timeouts can be written as "12h" in
// the YAML configuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// TransferConfig selects the scratch-to-storage transport used after
// a run completes.
type TransferConfig struct {
	// Kind is "local", "infiniband", or empty to leave results on
	// scratch.
	Kind string `yaml:"kind"`

	// Dest is the permanent storage root; results land under
	// Dest/<sample>/.
	Dest string `yaml:"dest"`

	// Staging is the intermediate directory on the IB-mounted
	// filesystem, used only by the infiniband transport.
	Staging string `yaml:"staging"`

	// Compress snappy-compresses transferred files (".sz" suffix).
	Compress bool `yaml:"compress"`
}

type Config struct {

	// The scratch directory where every intermediate file is
	// written.  Tool working directories live under it.
	WorkDir string `yaml:"workdir"`

	// The directory where per-phase logs and the final report are
	// written.  Defaults to <workdir>/report.
	ReportDir string `yaml:"report_dir"`

	// Reference database path per tool name, substituted for the
	// {db} placeholder of that tool's phases.
	Databases map[string]string `yaml:"databases"`

	// The unwanted-taxa list consumed by the optional filtering
	// step; required when a run is started with --filter.
	UnwantedTaxaFile string `yaml:"unwanted_taxa_file"`

	// Wall-clock limit for a single tool invocation.  Keep it
	// below the SLURM job time limit so a wedged tool fails fast
	// with its own exit code instead of being killed by the
	// scheduler.
	PhaseTimeout Duration `yaml:"phase_timeout"`

	// Minimum free bytes required on the scratch filesystem before
	// a run starts.  Zero disables the check.
	MinScratchBytes uint64 `yaml:"min_scratch_bytes"`

	// What to do with sibling chains when one chain fails under
	// ALL: "continue" (default) lets them finish, "abort" cancels
	// the whole run.
	OnChainFailure string `yaml:"on_chain_failure"`

	Transfer TransferConfig `yaml:"transfer"`
}

// DefaultConfig returns the configuration used when no file is given:
// everything under the current directory, 24h phase timeout,
// continue-on-failure, no transfer.
func DefaultConfig() *Config {
	return &Config{
		WorkDir:        "work",
		PhaseTimeout:   Duration(24 * time.Hour),
		OnChainFailure: "continue",
		Databases:      map[string]string{},
	}
}

// ReadConfig loads a YAML configuration file on top of the defaults.
func ReadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills derived defaults.
func (c *Config) Normalize() {
	if c.ReportDir == "" {
		c.ReportDir = c.WorkDir + "/report"
	}
	if c.OnChainFailure == "" {
		c.OnChainFailure = "continue"
	}
	if c.Databases == nil {
		c.Databases = map[string]string{}
	}
}
