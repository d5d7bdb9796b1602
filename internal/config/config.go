package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/barun-bash/vbport/internal/codegen"
	"github.com/barun-bash/vbport/internal/transpiler"
)

// Config holds all project configuration loaded from .vbport/config.json.
type Config struct {
	// Project names the project for Friend scopes.
	Project string `json:"project,omitempty"`
	// OutDir is where transpiled files are written, relative to the
	// project root. Empty means next to each source file.
	OutDir string `json:"out_dir,omitempty"`
	// Runtime pins the vbport-runtime version the project deploys with.
	Runtime  string           `json:"runtime,omitempty"`
	Compiler *CompilerOptions `json:"compiler,omitempty"`
}

// CompilerOptions overrides transpiler options. A nil field keeps the
// transpiler's default.
type CompilerOptions struct {
	UseStrictMode           *bool  `json:"use_strict_mode,omitempty"`
	GenerateTypeAnnotations *bool  `json:"generate_type_annotations,omitempty"`
	EnableOptimizations     *bool  `json:"enable_optimizations,omitempty"`
	DeadCodeElimination     *bool  `json:"dead_code_elimination,omitempty"`
	ConstantFolding         *bool  `json:"constant_folding,omitempty"`
	InlineExpansion         *bool  `json:"inline_expansion,omitempty"`
	LoopUnrolling           *bool  `json:"loop_unrolling,omitempty"`
	GenerateSourceMaps      *bool  `json:"generate_source_maps,omitempty"`
	TargetRuntime           string `json:"target_runtime,omitempty"`
	PreserveComments        *bool  `json:"preserve_comments,omitempty"`
	MaxOptimizationPasses   *int   `json:"max_optimization_passes,omitempty"`
}

// configDir and configFileName locate the configuration relative to the
// project root.
const (
	configDir      = ".vbport"
	configFileName = ".vbport/config.json"
)

// Load reads the project configuration from .vbport/config.json in the
// given project directory. If the file doesn't exist, it returns a zero
// Config (not an error).
func Load(projectDir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(projectDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configFileName, err)
	}
	if cfg.Compiler != nil && cfg.Compiler.TargetRuntime != "" {
		if _, err := codegen.ParseTarget(cfg.Compiler.TargetRuntime); err != nil {
			return nil, fmt.Errorf("%s: %w", configFileName, err)
		}
	}

	return cfg, nil
}

// Save writes the config to .vbport/config.json, creating the directory if
// needed.
func Save(projectDir string, cfg *Config) error {
	dir := filepath.Join(projectDir, configDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s directory: %w", configDir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	path := filepath.Join(projectDir, configFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", configFileName, err)
	}

	return nil
}

// Options returns the transpiler options this configuration selects,
// starting from the transpiler defaults.
func (c *Config) Options() transpiler.Options {
	opts := transpiler.DefaultOptions()
	if c == nil || c.Compiler == nil {
		return opts
	}
	o := c.Compiler
	setBool(&opts.UseStrictMode, o.UseStrictMode)
	setBool(&opts.GenerateTypeAnnotations, o.GenerateTypeAnnotations)
	setBool(&opts.EnableOptimizations, o.EnableOptimizations)
	setBool(&opts.DeadCodeElimination, o.DeadCodeElimination)
	setBool(&opts.ConstantFolding, o.ConstantFolding)
	setBool(&opts.InlineExpansion, o.InlineExpansion)
	setBool(&opts.LoopUnrolling, o.LoopUnrolling)
	setBool(&opts.GenerateSourceMaps, o.GenerateSourceMaps)
	setBool(&opts.PreserveComments, o.PreserveComments)
	if o.TargetRuntime != "" {
		opts.TargetRuntime = codegen.Target(o.TargetRuntime)
	}
	if o.MaxOptimizationPasses != nil {
		opts.MaxOptimizationPasses = *o.MaxOptimizationPasses
	}
	return opts
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// ProjectName returns the configured project, or the transpiler default.
func (c *Config) ProjectName() string {
	if c == nil || c.Project == "" {
		return transpiler.DefaultProject
	}
	return c.Project
}

// Bool returns a pointer to v, for filling CompilerOptions.
func Bool(v bool) *bool {
	return &v
}

// ── Global Settings (user-wide, stored in ~/.vbport/settings.json) ──

// GlobalSettings holds user-wide preferences that persist across projects.
type GlobalSettings struct {
	Theme string `json:"theme,omitempty"` // "default", "bright", "plain"
	Color *bool  `json:"color,omitempty"` // nil = detect the terminal
}

// globalSettingsFile is the path relative to the user's home directory.
const globalSettingsFile = ".vbport/settings.json"

// LoadGlobal reads user-wide settings from ~/.vbport/settings.json.
// Returns default settings if the file doesn't exist.
func LoadGlobal() (*GlobalSettings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return &GlobalSettings{}, nil
	}
	return loadGlobalFrom(filepath.Join(home, globalSettingsFile))
}

func loadGlobalFrom(path string) (*GlobalSettings, error) {
	s := &GlobalSettings{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading global settings: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", globalSettingsFile, err)
	}

	return s, nil
}

// SaveGlobal writes user-wide settings to ~/.vbport/settings.json.
func SaveGlobal(s *GlobalSettings) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not find home directory: %w", err)
	}
	return saveGlobalTo(filepath.Join(home, globalSettingsFile), s)
}

func saveGlobalTo(path string, s *GlobalSettings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", globalSettingsFile, err)
	}

	return nil
}

// ColorEnabled returns the color preference, or detected when the
// settings leave it unset.
func (s *GlobalSettings) ColorEnabled(detected bool) bool {
	if s.Color == nil {
		return detected
	}
	return *s.Color
}
