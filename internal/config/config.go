package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RoleResources holds the scheduler resource request for one job role.
type RoleResources struct {
	TimeLimit string `yaml:"time_limit"`  // sbatch --time value, e.g. "02:00:00"
	MemPerCPU string `yaml:"mem_per_cpu"` // sbatch --mem-per-cpu value, e.g. "4G"
	Output    string `yaml:"output"`      // sbatch --output pattern (optional)
}

// Config describes one optimization run rooted at a shared-filesystem
// directory. Every generation of the chain reads the same file, so the
// baseline (population size, ceiling, resources) stays fixed for the
// whole run.
type Config struct {
	// RunDir is the directory the chain operates in: marker file, ledger
	// and payload working files all live here. Resolved from the config
	// file location, not stored in the file itself.
	RunDir string `yaml:"-"`

	Executable string   `yaml:"executable"` // opaque worker/supervisor payload
	ExtraArgs  []string `yaml:"extra_args"` // fixed args placed before role and id

	Npop int `yaml:"npop"` // worker population size per generation
	Nmax int `yaml:"nmax"` // generation ceiling; nmax+1 halts

	Marker string `yaml:"marker"` // termination marker file name (default "STOP")
	Ledger string `yaml:"ledger"` // submission ledger file name (default "genchain.db")

	Sbatch    string `yaml:"sbatch"`    // sbatch binary (default "sbatch")
	Partition string `yaml:"partition"` // sbatch --partition (optional)
	Account   string `yaml:"account"`   // sbatch --account (optional)

	Supervisor RoleResources `yaml:"supervisor"`
	Worker     RoleResources `yaml:"worker"`

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// DefaultConfig returns sensible defaults. Executable, Npop and Nmax have
// no meaningful default and must come from the config file.
func DefaultConfig() Config {
	return Config{
		Marker:    "STOP",
		Ledger:    "genchain.db",
		Sbatch:    "sbatch",
		LogLevel:  "info",
		LogFormat: "text",
		Supervisor: RoleResources{
			TimeLimit: "01:00:00",
			MemPerCPU: "2G",
		},
		Worker: RoleResources{
			TimeLimit: "04:00:00",
			MemPerCPU: "4G",
		},
	}
}

// Load reads a YAML config file, overlays it on DefaultConfig and
// validates the result. RunDir is set to the file's directory.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return cfg, fmt.Errorf("resolve config path %s: %w", path, err)
	}
	cfg.RunDir = filepath.Dir(abs)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the chain cannot run without.
func (c Config) Validate() error {
	if c.Executable == "" {
		return fmt.Errorf("executable is required")
	}
	if c.Npop < 1 {
		return fmt.Errorf("npop must be at least 1, got %d", c.Npop)
	}
	if c.Nmax < 1 {
		return fmt.Errorf("nmax must be at least 1, got %d", c.Nmax)
	}
	if c.Marker == "" {
		return fmt.Errorf("marker name must not be empty")
	}
	return nil
}

// MarkerPath returns the absolute path of the termination marker.
func (c Config) MarkerPath() string {
	return filepath.Join(c.RunDir, c.Marker)
}

// LedgerPath returns the absolute path of the submission ledger.
func (c Config) LedgerPath() string {
	return filepath.Join(c.RunDir, c.Ledger)
}
