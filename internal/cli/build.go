package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/ramlgen/internal/diag"
	"github.com/mark3labs/ramlgen/internal/lint"
	"github.com/mark3labs/ramlgen/internal/logging"
	"github.com/mark3labs/ramlgen/internal/pipeline"
	"github.com/mark3labs/ramlgen/internal/render"
)

var (
	buildRunner    = runBuild
	validateRunner = runValidate
	lintRunner     = runLint
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Normalize, dereference and validate RAML documents, then write the output",
		Long: "Build runs every input through lint, normalization, schema dereferencing and example " +
			"validation, then writes one artifact per input. Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  ramlgen build --input api.raml --schema-dir schema --out dist
  ramlgen --config ramlgen.yaml build --format json --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveBuildConfig(cmd, "build")
			if err != nil {
				return err
			}
			return buildRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	addInputFlags(cmd)
	flags.String("out", "", "Output directory; defaults to dist")
	flags.String("format", "", "Output format (raml|json|yaml); defaults to raml")
	flags.String("policy", "", "Failure policy (report|fail-on-error|fail-after-error); defaults to report")
	flags.String("url-pattern", "", "Regular expression resource URIs must match")
	flags.StringSlice("disable", nil, "Lint rule IDs to skip")
	flags.Bool("skip-lint", false, "Do not lint the inputs")
	flags.Bool("skip-validate", false, "Do not validate examples against schemas")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")

	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate RAML examples against their JSON schemas",
		Long:  "Validate loads, normalizes and dereferences every input and checks each example against its sibling schema. Nothing is written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveBuildConfig(cmd, "validate")
			if err != nil {
				return err
			}
			return validateRunner(cmd.Context(), cfg)
		},
	}
	addInputFlags(cmd)
	return cmd
}

func newLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Lint RAML documents",
		Long:  "Lint checks titles, base URIs, resource naming, descriptions and response codes. It fails on errors and warnings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveBuildConfig(cmd, "lint")
			if err != nil {
				return err
			}
			return lintRunner(cmd.Context(), cfg)
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("url-pattern", "", "Regular expression resource URIs must match")
	cmd.Flags().StringSlice("disable", nil, "Lint rule IDs to skip")
	return cmd
}

func addInputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSlice("input", nil, "RAML files, globs or URLs to process")
	flags.String("schema-dir", "", "Directory $ref and schema file names resolve against; defaults to each document's directory")
	flags.Int("concurrency", 0, "Maximum documents and schemas processed at once")
	flags.Bool("lenient", false, "Accept input without the RAML 0.8 header")
}

func newLogger(verbose bool) *slog.Logger {
	level := logging.INFO
	if verbose {
		level = logging.DEBUG
	}
	return logging.New(level, os.Stderr)
}

func runBuild(ctx context.Context, cfg *BuildConfig) error {
	summary, err := pipeline.RunFiles(ctx, cfg.Inputs, cfg.pipelineConfig())
	if summary != nil {
		printReports(os.Stdout, summary)
		if cfg.DryRun {
			printPlan(absPath(cfg.Out), plannedOutputs(cfg, summary))
		} else {
			for _, res := range summary.Results {
				if res != nil && res.OutputPath != "" {
					fmt.Fprintf(os.Stdout, "Wrote %s\n", res.OutputPath)
				}
			}
		}
	}
	if err != nil {
		return wrapOutputError(friendlyError(err), absPath(cfg.Out))
	}
	return nil
}

func runValidate(ctx context.Context, cfg *BuildConfig) error {
	pcfg := cfg.pipelineConfig()
	pcfg.SkipLint = true
	pcfg.SkipValidate = false
	pcfg.DryRun = true
	pcfg.Policy = pipeline.PolicyFailAfterError
	summary, err := pipeline.RunFiles(ctx, cfg.Inputs, pcfg)
	if summary != nil {
		printReports(os.Stdout, summary)
	}
	return friendlyError(err)
}

func runLint(ctx context.Context, cfg *BuildConfig) error {
	pcfg := cfg.pipelineConfig()
	paths, err := pipeline.ExpandInputs(cfg.Inputs)
	if err != nil {
		return newUsageError(fmt.Sprintf("lint: %v", err))
	}
	var (
		errs   []error
		failed int
	)
	for _, path := range paths {
		doc, err := pipeline.Load(ctx, path, pcfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report, err := lint.Lint(doc, lint.Options{
			URLPattern: cfg.URLPattern,
			Disabled:   cfg.DisabledRules,
			Logger:     pcfg.Logger,
		})
		if err != nil {
			return newUsageError(fmt.Sprintf("lint: %v", err))
		}
		printReport(os.Stdout, "Lint", report)
		if !report.Success() {
			failed++
		}
	}
	if failed > 0 {
		errs = append(errs, fmt.Errorf("lint failed for %d of %d documents", failed, len(paths)))
	}
	return friendlyError(errors.Join(errs...))
}

func printReports(w io.Writer, summary *pipeline.Summary) {
	for _, res := range summary.Results {
		if res == nil {
			continue
		}
		printReport(w, "Lint", res.Lint)
		printReport(w, "Examples", res.Examples)
	}
}

func printReport(w io.Writer, title string, report *diag.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "%s report for %s (run %s):\n", title, report.Document, report.RunID)
	_ = report.Write(w)
}

func plannedOutputs(cfg *BuildConfig, summary *pipeline.Summary) []string {
	format, _ := render.ParseFormat(cfg.Format)
	var rels []string
	for _, res := range summary.Results {
		if res == nil || res.Output == nil {
			continue
		}
		rels = append(rels, filepath.Base(pipeline.OutputPath(cfg.Out, res.Document, format.Extension())))
	}
	return rels
}

func printPlan(outDir string, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func absPath(p string) string {
	if ap, err := filepath.Abs(p); err == nil {
		return ap
	}
	return p
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or check directory permissions.", outDir, msg))
	}
	return err
}
