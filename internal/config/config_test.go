package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barun-bash/vbport/internal/codegen"
	"github.com/barun-bash/vbport/internal/transpiler"
)

func writeConfig(t *testing.T, dir, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, ".vbport"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".vbport", "config.json"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Compiler != nil {
		t.Fatalf("expected nil compiler options, got: %+v", cfg.Compiler)
	}
	if got := cfg.ProjectName(); got != transpiler.DefaultProject {
		t.Errorf("ProjectName() = %q, want %q", got, transpiler.DefaultProject)
	}
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
  "project": "Billing",
  "out_dir": "js",
  "compiler": {
    "enable_optimizations": false,
    "target_runtime": "server",
    "max_optimization_passes": 3
  }
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProjectName() != "Billing" {
		t.Errorf("project = %q, want Billing", cfg.ProjectName())
	}
	if cfg.OutDir != "js" {
		t.Errorf("out_dir = %q, want js", cfg.OutDir)
	}

	opts := cfg.Options()
	if opts.EnableOptimizations {
		t.Error("enable_optimizations should be overridden to false")
	}
	if opts.TargetRuntime != codegen.TargetServer {
		t.Errorf("target = %q, want server", opts.TargetRuntime)
	}
	if opts.MaxOptimizationPasses != 3 {
		t.Errorf("passes = %d, want 3", opts.MaxOptimizationPasses)
	}
	// Unset fields keep the defaults.
	if !opts.UseStrictMode || !opts.GenerateSourceMaps {
		t.Errorf("unset options lost their defaults: %+v", opts)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not json`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadUnknownTarget(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"compiler": {"target_runtime": "mainframe"}}`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for unknown target")
	}
	if !strings.Contains(err.Error(), "mainframe") {
		t.Errorf("error should name the target, got: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var cfg *Config
	got := cfg.Options()
	want := transpiler.DefaultOptions()
	if got != want {
		t.Errorf("nil config options = %+v, want %+v", got, want)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	original := &Config{
		Project: "Ledger",
		Compiler: &CompilerOptions{
			PreserveComments: Bool(false),
			LoopUnrolling:    Bool(false),
		},
	}

	if err := Save(dir, original); err != nil {
		t.Fatalf("save error: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if loaded.Project != "Ledger" {
		t.Errorf("project = %q, want Ledger", loaded.Project)
	}
	opts := loaded.Options()
	if opts.PreserveComments || opts.LoopUnrolling {
		t.Errorf("saved overrides not applied: %+v", opts)
	}
	if !opts.ConstantFolding {
		t.Error("constant folding should keep its default")
	}
}

func TestGlobalSettingsDefaults(t *testing.T) {
	s, err := loadGlobalFrom(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Theme != "" {
		t.Errorf("theme = %q, want empty", s.Theme)
	}
	if !s.ColorEnabled(true) || s.ColorEnabled(false) {
		t.Error("unset color should follow detection")
	}
}

func TestGlobalSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vbport", "settings.json")
	in := &GlobalSettings{Theme: "bright", Color: Bool(false)}

	if err := saveGlobalTo(path, in); err != nil {
		t.Fatalf("save error: %v", err)
	}
	out, err := loadGlobalFrom(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if out.Theme != "bright" {
		t.Errorf("theme = %q, want bright", out.Theme)
	}
	if out.ColorEnabled(true) {
		t.Error("color preference false should override detection")
	}
}
