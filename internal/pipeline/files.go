package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/ramlgen/internal/logging"
	"github.com/mark3labs/ramlgen/internal/raml"
)

// Summary is the outcome of a multi-document run.
type Summary struct {
	// Results holds one entry per input in input order; nil for inputs
	// that failed before a result existed.
	Results []*Result
	// Failed maps an input to its fatal error.
	Failed map[string]error
	// WithFindings counts documents whose findings contain errors.
	WithFindings int
}

// ExpandInputs resolves glob patterns among local inputs. URLs and plain
// paths are kept; duplicates are removed while preserving order.
func ExpandInputs(inputs []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		if raml.IsURL(in) || !strings.ContainsAny(in, "*?[") {
			add(in)
			continue
		}
		matches, err := filepath.Glob(in)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", in, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", in)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}

// RunFiles loads and processes every input concurrently. A fatal error in
// one document never stops the others; all of them are returned joined.
// Outputs are written to cfg.OutDir unless cfg.DryRun is set.
func RunFiles(ctx context.Context, inputs []string, cfg Config) (*Summary, error) {
	logger := logging.OrDiscard(cfg.Logger)
	paths, err := ExpandInputs(inputs)
	if err != nil {
		return nil, &raml.Error{Code: raml.InputError, Stage: "pipeline", Message: err.Error()}
	}
	if len(paths) == 0 {
		return nil, &raml.Error{Code: raml.InputError, Stage: "pipeline", Message: "no input documents"}
	}

	summary := &Summary{Results: make([]*Result, len(paths)), Failed: map[string]error{}}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(cfg.concurrency())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := runFile(ctx, path, cfg)
			mu.Lock()
			defer mu.Unlock()
			summary.Results[i] = res
			if res != nil && res.Findings != nil {
				summary.WithFindings++
			}
			if err != nil {
				summary.Failed[path] = err
				logger.Error("document failed", "document", path, "stage", "pipeline", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, path := range paths {
		if err, ok := summary.Failed[path]; ok {
			errs = append(errs, err)
		}
	}
	if cfg.Policy == PolicyFailAfterError && summary.WithFindings > 0 {
		noun := "errors"
		if summary.WithFindings == 1 {
			noun = "error"
		}
		errs = append(errs, fmt.Errorf("Failed with %d %s", summary.WithFindings, noun))
	}
	return summary, errors.Join(errs...)
}

// Load reads one input with the loader settings implied by cfg. JSON inputs
// never carry the RAML header.
func Load(ctx context.Context, path string, cfg Config) (*raml.Document, error) {
	opts := []raml.Option{raml.WithFS(cfg.FS), raml.WithLogger(cfg.Logger)}
	if cfg.Lenient || strings.EqualFold(filepath.Ext(path), ".json") {
		opts = append(opts, raml.WithLenientHeader())
	}
	return raml.LoadFile(ctx, path, opts...)
}

func runFile(ctx context.Context, path string, cfg Config) (*Result, error) {
	doc, err := Load(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	res, err := Run(ctx, doc, cfg)
	if err != nil {
		return res, err
	}
	if cfg.DryRun {
		return res, nil
	}
	res.OutputPath = OutputPath(cfg.OutDir, path, cfg.format().Extension())
	if err := writeFile(res.OutputPath, res.Output); err != nil {
		return res, &raml.Error{Code: raml.InputError, Stage: "write", Document: doc.Name, Message: "write output", Cause: err}
	}
	logging.OrDiscard(cfg.Logger).Info("wrote output", "document", doc.Name, "path", res.OutputPath)
	return res, nil
}

// OutputPath names the artifact for input inside outDir.
func OutputPath(outDir, input, ext string) string {
	base := filepath.Base(input)
	if raml.IsURL(input) {
		if i := strings.LastIndex(input, "/"); i >= 0 {
			base = input[i+1:]
		}
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if outDir == "" {
		outDir = "dist"
	}
	return filepath.Join(outDir, base+ext)
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := path + ".tmp-" + time.Now().Format("20060102150405.000000000")
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
