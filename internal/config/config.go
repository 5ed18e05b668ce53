// Package config loads engine settings from prism.toml. The manifest is
// optional; every field has a usable default so the CLI runs without one.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"prism/internal/diag"
)

// Analysis configures the run itself.
type Analysis struct {
	// Rules selects the enabled analyzers by name; empty enables all.
	Rules []string `toml:"rules"`
	// Jobs sets the worker pool size; 0 means one per CPU.
	Jobs int `toml:"jobs"`
	// MaxDiagnostics caps the diagnostics kept per run.
	MaxDiagnostics int `toml:"max_diagnostics"`
	// Categorized splits the diagnostic queue by locality.
	Categorized bool `toml:"categorized"`
}

// Cache configures the on-disk result cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Config is the parsed prism.toml.
type Config struct {
	Analysis Analysis `toml:"analysis"`
	Cache    Cache    `toml:"cache"`
	// Severity overrides the reported severity per analyzer name
	// ("info", "warning" or "error").
	Severity map[string]string `toml:"severity"`
}

// ErrBadSeverity indicates an unknown severity name in [severity].
var ErrBadSeverity = errors.New("unknown severity")

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{
		Analysis: Analysis{MaxDiagnostics: 256},
	}
}

// Load parses a prism.toml and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("analysis", "max_diagnostics") && cfg.Analysis.MaxDiagnostics <= 0 {
		return Config{}, fmt.Errorf("%s: max_diagnostics must be positive", path)
	}
	if cfg.Analysis.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: jobs must not be negative", path)
	}
	if _, err := cfg.Overrides(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Overrides resolves the [severity] section to typed severities.
func (c Config) Overrides() (map[string]diag.Severity, error) {
	if len(c.Severity) == 0 {
		return nil, nil
	}
	out := make(map[string]diag.Severity, len(c.Severity))
	for name, raw := range c.Severity {
		sev, ok := diag.ParseSeverity(raw)
		if !ok {
			return nil, fmt.Errorf("%w %q for rule %q", ErrBadSeverity, raw, name)
		}
		out[name] = sev
	}
	return out, nil
}

// Find walks up from startDir to locate prism.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "prism.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest manifest above startDir, or the defaults when
// none exists.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}
