// Package pipeline composes the RAML stages: lint, normalize, dereference,
// validate examples and render.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viant/afs"

	"github.com/mark3labs/ramlgen/internal/deref"
	"github.com/mark3labs/ramlgen/internal/diag"
	"github.com/mark3labs/ramlgen/internal/examples"
	"github.com/mark3labs/ramlgen/internal/lint"
	"github.com/mark3labs/ramlgen/internal/logging"
	"github.com/mark3labs/ramlgen/internal/normalize"
	"github.com/mark3labs/ramlgen/internal/raml"
	"github.com/mark3labs/ramlgen/internal/render"
)

// Policy decides whether findings fail a run.
type Policy string

const (
	// PolicyReport prints findings and never fails on them.
	PolicyReport Policy = "report"
	// PolicyFailOnError fails each document that has error findings.
	PolicyFailOnError Policy = "fail-on-error"
	// PolicyFailAfterError processes every document, then fails once if any
	// of them had error findings.
	PolicyFailAfterError Policy = "fail-after-error"
)

// ParsePolicy accepts a policy name; empty means PolicyReport.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyReport, nil
	case PolicyReport, PolicyFailOnError, PolicyFailAfterError:
		return p, nil
	}
	return "", fmt.Errorf("unsupported policy %q (expected report, fail-on-error or fail-after-error)", s)
}

// Config drives Run and RunFiles.
type Config struct {
	SchemaDir    string
	OutDir       string
	Format       render.Format
	Concurrency  int
	Policy       Policy
	SkipLint     bool
	SkipValidate bool
	DryRun       bool
	// Lenient accepts input without the RAML header (JSON trees).
	Lenient    bool
	URLPattern string
	// DisabledRules lists lint rule IDs to skip.
	DisabledRules []string
	FS            afs.Service
	Logger        *slog.Logger
}

func (c Config) concurrency() int {
	if c.Concurrency <= 0 {
		return deref.DefaultConcurrency
	}
	return c.Concurrency
}

func (c Config) format() render.Format {
	if c.Format == "" {
		return render.FormatRAML
	}
	return c.Format
}

// Result is the outcome for one document.
type Result struct {
	Document   string
	Output     []byte
	OutputPath string
	Lint       *diag.Report
	Examples   *diag.Report
	// Findings joins the error-level lint and example findings; nil when clean.
	Findings error
}

// ErrFindings marks a document that failed because of its findings under
// PolicyFailOnError.
var ErrFindings = errors.New("document has error findings")

// Run processes one loaded document. Fatal stage errors are returned as is.
// Findings are returned as an error only under PolicyFailOnError; the
// result is populated either way.
func Run(ctx context.Context, doc *raml.Document, cfg Config) (*Result, error) {
	logger := logging.OrDiscard(cfg.Logger)
	res := &Result{Document: doc.Name}

	if !cfg.SkipLint {
		report, err := lint.Lint(doc, lint.Options{URLPattern: cfg.URLPattern, Disabled: cfg.DisabledRules, Logger: cfg.Logger})
		if err != nil {
			return res, err
		}
		res.Lint = report
	}
	if err := normalize.Normalize(ctx, doc, normalize.WithLogger(cfg.Logger)); err != nil {
		return res, err
	}
	if err := deref.Dereference(ctx, doc, deref.Options{
		SchemaDir:   cfg.SchemaDir,
		Concurrency: cfg.concurrency(),
		FS:          cfg.FS,
		Logger:      cfg.Logger,
	}); err != nil {
		return res, err
	}
	if !cfg.SkipValidate {
		report, err := examples.Validate(ctx, doc, examples.Options{Logger: cfg.Logger})
		if err != nil {
			return res, err
		}
		res.Examples = report
	}
	res.Findings = errors.Join(res.Lint.Err(), res.Examples.Err())

	out, err := render.Render(doc, cfg.format())
	if err != nil {
		return res, err
	}
	res.Output = out
	logger.Debug("document processed", "document", doc.Name, "stage", "pipeline", "count", len(out))

	if res.Findings != nil && cfg.Policy == PolicyFailOnError {
		return res, fmt.Errorf("%s: %w\n%w", doc.Name, ErrFindings, res.Findings)
	}
	return res, nil
}
