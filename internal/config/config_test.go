package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"prism/internal/diag"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "prism.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadFullManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[analysis]
rules = ["deadcode", "naming"]
jobs = 4
max_diagnostics = 512
categorized = true

[cache]
enabled = true
dir = ".prism-cache"

[severity]
naming = "error"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Analysis.Rules) != 2 || cfg.Analysis.Rules[0] != "deadcode" {
		t.Errorf("rules = %v", cfg.Analysis.Rules)
	}
	if cfg.Analysis.Jobs != 4 || cfg.Analysis.MaxDiagnostics != 512 || !cfg.Analysis.Categorized {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Dir != ".prism-cache" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	overrides, err := cfg.Overrides()
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if overrides["naming"] != diag.SevError {
		t.Errorf("override = %v", overrides["naming"])
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `[analysis]
jobs = 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Analysis.MaxDiagnostics != 256 {
		t.Errorf("max_diagnostics = %d, want default 256", cfg.Analysis.MaxDiagnostics)
	}
}

func TestLoadRejectsBadSeverity(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `[severity]
deadcode = "fatal"
`)
	if _, err := Load(path); !errors.Is(err, ErrBadSeverity) {
		t.Fatalf("err = %v, want ErrBadSeverity", err)
	}
}

func TestLoadRejectsNegativeJobs(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `[analysis]
jobs = -1
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative jobs")
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[analysis]\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if filepath.Dir(path) != root {
		t.Errorf("found %s, want manifest in %s", path, root)
	}
}

func TestDiscoverWithoutManifest(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg.Analysis.MaxDiagnostics != 256 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}
