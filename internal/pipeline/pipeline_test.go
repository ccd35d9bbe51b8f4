package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/ramlgen/internal/raml"
	"github.com/mark3labs/ramlgen/internal/render"
)

const goodRAML = `#%RAML 0.8
title: Widgets
version: v1
baseUri: http://api.example.com/{version}
schemas:
  - widget: !include schema/widget.json
/widgets:
  description: >
    All the
    widgets
  post:
    description: Create
    body:
      application/json:
        schema: widget
        example: !include examples/widget.json
    responses:
      201:
`

const badExampleRAML = `#%RAML 0.8
title: Broken
baseUri: http://api.example.com
/things:
  description: Things
  post:
    description: Create
    body:
      application/json:
        schema: '{"type":"object","properties":{"n":{"type":"integer"}}}'
        example: '{"n":"nope"}'
    responses:
      201:
`

func writeFixture(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, map[string]string{
		"api.raml":             goodRAML,
		"bad.raml":             badExampleRAML,
		"schema/widget.json":   `{"type":"object","properties":{"id":{"$ref":"common.json#/definitions/id"}},"required":["id"]}`,
		"schema/common.json":   `{"definitions":{"id":{"type":"string"}}}`,
		"examples/widget.json": `{"id":"w-1"}`,
	})
	return dir
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Policy{"": PolicyReport, "Fail-On-Error": PolicyFailOnError, "fail-after-error": PolicyFailAfterError} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("never"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_CleanDocument(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	doc, err := raml.LoadFile(context.Background(), filepath.Join(dir, "api.raml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := Run(context.Background(), doc, Config{SchemaDir: filepath.Join(dir, "schema")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Findings != nil {
		t.Fatalf("unexpected findings: %v", res.Findings)
	}
	out := string(res.Output)
	for _, want := range []string{"#%RAML 0.8\n---\n", "/widgets:", "description: |", "All the widgets", `"type": "string"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"$ref", "relativeUri", "baseUriParameters", "resources:"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("output contains %q:\n%s", unwanted, out)
		}
	}
}

func TestRun_FailOnError(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	doc, err := raml.LoadFile(context.Background(), filepath.Join(dir, "bad.raml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := Run(context.Background(), doc, Config{Policy: PolicyFailOnError})
	if !errors.Is(err, ErrFindings) {
		t.Fatalf("expected ErrFindings, got %v", err)
	}
	if res == nil || res.Examples == nil || res.Examples.Count("error") != 1 {
		t.Fatalf("expected one example error in result")
	}
}

func TestRunFiles_WritesOutputsAndAppliesPolicy(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	out := filepath.Join(dir, "dist")
	summary, err := RunFiles(context.Background(), []string{filepath.Join(dir, "*.raml")}, Config{
		SchemaDir:   filepath.Join(dir, "schema"),
		OutDir:      out,
		Format:      render.FormatJSON,
		Concurrency: 2,
		Policy:      PolicyFailAfterError,
	})
	if err == nil || !strings.Contains(err.Error(), "Failed with 1 error") {
		t.Fatalf("expected fail-after-error summary, got %v", err)
	}
	if len(summary.Results) != 2 || summary.WithFindings != 1 || len(summary.Failed) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for _, name := range []string{"api.json", "bad.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("expected %s written: %v", name, err)
		}
	}
}

func TestRunFiles_ReportPolicyAndFatalIsolation(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	writeFixture(t, dir, map[string]string{"broken.raml": "#%RAML 0.8\ntitle: x\n/a:\n  post:\n    body:\n      application/json:\n        schema: '{oops'\n"})
	summary, err := RunFiles(context.Background(), []string{
		filepath.Join(dir, "api.raml"),
		filepath.Join(dir, "broken.raml"),
		filepath.Join(dir, "bad.raml"),
	}, Config{SchemaDir: filepath.Join(dir, "schema"), DryRun: true})
	var re *raml.Error
	if !errors.As(err, &re) || re.Code != raml.ParseError {
		t.Fatalf("expected ParseError from broken.raml, got %v", err)
	}
	if summary.Results[0] == nil || summary.Results[0].Output == nil || summary.Results[2] == nil {
		t.Fatalf("healthy documents should still be processed")
	}
	if summary.Results[0].OutputPath != "" {
		t.Fatalf("dry run must not write")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(statErr) {
		t.Fatalf("dry run created output dir")
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()
	if got := OutputPath("out", "/a/b/api.raml", ".json"); got != filepath.Join("out", "api.json") {
		t.Fatalf("got %q", got)
	}
	if got := OutputPath("", "mem://localhost/x/api.raml", ".raml"); got != filepath.Join("dist", "api.raml") {
		t.Fatalf("got %q", got)
	}
}
