package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureBuildConfig(t *testing.T, args ...string) (*BuildConfig, error) {
	t.Helper()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *BuildConfig
	buildRunner = func(ctx context.Context, cfg *BuildConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { buildRunner = runBuild })

	root.SetArgs(args)
	err := root.Execute()
	return captured, err
}

func TestBuildConfigFromFlags(t *testing.T) {
	captured, err := captureBuildConfig(t,
		"--verbose",
		"build",
		"--input", "a.raml,b.raml",
		"--input", "a.raml",
		"--schema-dir", "schemas",
		"--out", "./site",
		"--format", "JSON",
		"--policy", "fail-on-error",
		"--concurrency", "2",
		"--url-pattern", "^/.*$",
		"--disable", "method_desc",
		"--skip-lint",
		"--skip-validate",
		"--dry-run",
		"--lenient",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if want := []string{"a.raml", "b.raml"}; !equalStringSlices(captured.Inputs, want) {
		t.Errorf("inputs mismatch: got %v", captured.Inputs)
	}
	if captured.SchemaDir != "schemas" {
		t.Errorf("schema dir mismatch: got %q", captured.SchemaDir)
	}
	if captured.Out != "./site" {
		t.Errorf("out mismatch: got %q", captured.Out)
	}
	if captured.Format != "json" {
		t.Errorf("format mismatch: got %q", captured.Format)
	}
	if captured.Policy != "fail-on-error" {
		t.Errorf("policy mismatch: got %q", captured.Policy)
	}
	if captured.Concurrency != 2 {
		t.Errorf("concurrency mismatch: got %d", captured.Concurrency)
	}
	if captured.URLPattern != "^/.*$" {
		t.Errorf("url pattern mismatch: got %q", captured.URLPattern)
	}
	if want := []string{"method_desc"}; !equalStringSlices(captured.DisabledRules, want) {
		t.Errorf("disabled rules mismatch: got %v", captured.DisabledRules)
	}
	if !captured.SkipLint || !captured.SkipValidate || !captured.DryRun || !captured.Lenient {
		t.Errorf("expected every bool flag set: %+v", captured)
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestBuildConfigDefaults(t *testing.T) {
	captured, err := captureBuildConfig(t, "build", "--input", "api.raml")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Out != "dist" || captured.Format != "raml" || captured.Policy != "report" || captured.Concurrency != 4 {
		t.Fatalf("unexpected defaults: %+v", captured)
	}
}

func TestBuildConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ramlgen.yaml")
	configContent := strings.TrimSpace(`input:
  - api.raml
  - /abs/other.raml
schema-dir: schema
out: from-config
format: yaml
policy: fail-after-error
concurrency: 8
skip_lint: true
dryRun: true
verbose: true
`) + "\n"

	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	captured, err := captureBuildConfig(t,
		"--config", configPath,
		"build",
		"--format", "json",
		"--dry-run=false",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	wantInputs := []string{filepath.Join(tmpDir, "api.raml"), "/abs/other.raml"}
	if !equalStringSlices(captured.Inputs, wantInputs) {
		t.Errorf("inputs: want %v got %v", wantInputs, captured.Inputs)
	}
	if want := filepath.Join(tmpDir, "schema"); captured.SchemaDir != want {
		t.Errorf("schema dir: want %q got %q", want, captured.SchemaDir)
	}
	if want := filepath.Join(tmpDir, "from-config"); captured.Out != want {
		t.Errorf("out: want %q got %q", want, captured.Out)
	}
	if captured.Format != "json" {
		t.Errorf("format: want json got %q", captured.Format)
	}
	if captured.Policy != "fail-after-error" {
		t.Errorf("policy: want fail-after-error got %q", captured.Policy)
	}
	if captured.Concurrency != 8 {
		t.Errorf("concurrency: want 8 got %d", captured.Concurrency)
	}
	if !captured.SkipLint {
		t.Errorf("expected skip lint from config file")
	}
	if captured.DryRun {
		t.Errorf("expected dry-run false after flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestBuildConfigUnknownKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("unknown: value\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := captureBuildConfig(t, "--config", configPath, "build", "--input", "api.raml")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestBuildConfigValidation(t *testing.T) {
	cases := map[string][]string{
		"missing input":   {"build"},
		"bad format":      {"build", "--input", "api.raml", "--format", "html"},
		"bad policy":      {"build", "--input", "api.raml", "--policy", "never"},
		"bad concurrency": {"build", "--input", "api.raml", "--concurrency=-1"},
	}
	for name, args := range cases {
		captured, err := captureBuildConfig(t, args...)
		if err == nil {
			t.Errorf("%s: expected an error", name)
			continue
		}
		if !errors.Is(err, ErrUsage) {
			t.Errorf("%s: expected usage error, got %v", name, err)
		}
		if captured != nil {
			t.Errorf("%s: runner must not be invoked", name)
		}
	}
}

func TestLintConfigFromFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *BuildConfig
	lintRunner = func(ctx context.Context, cfg *BuildConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { lintRunner = runLint })

	root.SetArgs([]string{"lint", "--input", "api.raml", "--disable", "url_lower,resource_desc"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}
	if want := []string{"url_lower", "resource_desc"}; !equalStringSlices(captured.DisabledRules, want) {
		t.Errorf("disabled rules mismatch: got %v", captured.DisabledRules)
	}
	if captured.Format != "raml" {
		t.Errorf("format should keep its default, got %q", captured.Format)
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
