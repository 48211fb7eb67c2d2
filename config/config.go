// Package config handles runtime configuration.
//
// Configuration is loaded with overlay semantics:
//
//  1. Start with built-in defaults (embedded via go:embed from default.toml)
//  2. Overlay with config file values (if file exists)
//  3. Caller-supplied overrides apply on top of that (handled by the
//     control-plane/CLI layer)
//
// This ensures a valid configuration is always available, even when no
// config file exists. The TOML decoder only sets fields present in the
// file, leaving unspecified fields at their default values.
//
// If the config file exists but is invalid, Load returns an error rather
// than silently falling back to defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/frobware/ebpfcore/ebpferrors"
	"github.com/frobware/ebpfcore/isa"
	"github.com/frobware/ebpfcore/program"
	"github.com/frobware/ebpfcore/vm"
)

//go:embed default.toml
var defaultConfigTOML string

// DefaultConfigPath is the default path to the runtime's config file.
const DefaultConfigPath = "/etc/ebpfcore/ebpfcore.toml"

// Config is the top-level runtime configuration.
type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Logging LoggingConfig `toml:"logging"`
}

// RuntimeConfig controls the tunables the spec leaves to the host:
// the watchdog cap, the structural bounds the verifier and program
// loader enforce, and whether the JIT is consulted at all.
type RuntimeConfig struct {
	// MaxInsts bounds a program's instruction vector length. It must
	// not exceed isa.MaxInstructions, the compiled ceiling the
	// verifier and encoder are sized around.
	MaxInsts int `toml:"max_insts"`
	// MaxAttachedMaps bounds a program's attached-map slot table. It
	// must not exceed program.MaxAttachedMaps, the compiled size of
	// the slot array.
	MaxAttachedMaps int `toml:"max_attached_maps"`
	// InstructionCountCap is the watchdog step budget passed to
	// vm.ExecWithCap.
	InstructionCountCap uint64 `toml:"instruction_count_cap"`
	// JITEnabled gates whether a loaded program is offered to the JIT
	// at all; false forces every program onto the interpreter.
	JITEnabled bool `toml:"jit_enabled"`
}

// LoggingConfig controls logging behaviour.
type LoggingConfig struct {
	// Level is the log spec (e.g., "info" or "info,vm=debug").
	Level string `toml:"level"`
	// Format is the output format: "text" or "json".
	Format string `toml:"format"`
}

// DefaultConfig returns the default configuration from the embedded
// default.toml. This provides a valid baseline that is always
// available.
func DefaultConfig() Config {
	var cfg Config
	if _, err := toml.Decode(defaultConfigTOML, &cfg); err != nil {
		// Should never happen: default.toml is embedded at build
		// time. Fall back to a minimal safe config rather than panic.
		return Config{
			Runtime: RuntimeConfig{
				MaxInsts:            isa.MaxInstructions,
				MaxAttachedMaps:     program.MaxAttachedMaps,
				InstructionCountCap: 1_000_000,
				JITEnabled:          true,
			},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		}
	}
	return cfg
}

// Load reads configuration from a file path with overlay semantics.
//
// Behaviour:
//   - File missing: returns default configuration (no error)
//   - File exists and valid: overlays file values onto defaults
//   - File exists but invalid, or fails Validate: returns an error
//
// The TOML decoder only sets fields present in the file, so
// unspecified fields retain their default values from default.toml.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration against the runtime's compiled
// ceilings. A config file is free to tighten these bounds but never
// to widen them past what the verifier and program loader are sized
// for.
func (c *Config) Validate() error {
	if c.Runtime.MaxInsts <= 0 || c.Runtime.MaxInsts > isa.MaxInstructions {
		return ebpferrors.InvalidArgument("runtime.max_insts %d outside (0, %d]", c.Runtime.MaxInsts, isa.MaxInstructions)
	}
	if c.Runtime.MaxAttachedMaps <= 0 || c.Runtime.MaxAttachedMaps > program.MaxAttachedMaps {
		return ebpferrors.InvalidArgument("runtime.max_attached_maps %d outside (0, %d]", c.Runtime.MaxAttachedMaps, program.MaxAttachedMaps)
	}
	if c.Runtime.InstructionCountCap == 0 || c.Runtime.InstructionCountCap > vm.MaxInstructionCount {
		return ebpferrors.InvalidArgument("runtime.instruction_count_cap %d outside (0, %d]", c.Runtime.InstructionCountCap, vm.MaxInstructionCount)
	}
	return nil
}
