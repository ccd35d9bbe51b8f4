// Package deref inlines JSON-Schema $ref pointers in the schema strings of a
// RAML tree.
package deref

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/logging"
	"github.com/mark3labs/ramlgen/internal/raml"
)

const (
	stage = "deref"

	// DefaultConcurrency bounds the resolution tasks in flight per document.
	DefaultConcurrency = 4
)

// TemplateParam matches an un-substituted RAML parameter such as <<schema>>.
var TemplateParam = regexp.MustCompile(`<<[^>]+>>`)

// Options configures Dereference.
type Options struct {
	// SchemaDir is the folder relative $refs in inline schemas resolve against.
	SchemaDir string
	// DocumentDir is the folder schema values naming a file resolve against.
	// Empty means the document's own BaseDir.
	DocumentDir string
	Concurrency int
	FS          afs.Service
	Logger      *slog.Logger
}

// Target is one schema-bearing leaf of the tree.
type Target struct {
	Path raml.Path
	Node *yaml.Node
}

// IsTarget reports whether path addresses a schema: either the key is
// "schema", or the leaf sits in a named library under "schemas".
func IsTarget(path raml.Path) bool {
	n := len(path)
	if n == 0 {
		return false
	}
	if path[n-1] == "schema" {
		return true
	}
	return (n >= 2 && path[n-2] == "schemas") || (n >= 3 && path[n-3] == "schemas")
}

// Targets lists the string leaves of root that hold schemas, in document order.
func Targets(root *yaml.Node) []Target {
	var out []Target
	raml.Walk(root, func(path raml.Path, node, parent *yaml.Node) bool {
		if raml.IsString(node) && IsTarget(path) {
			out = append(out, Target{Path: path, Node: node})
		}
		return true
	})
	return out
}

// Dereference replaces every schema string of doc with its fully resolved,
// pretty-printed form. Template-guarded and XML schemas are left untouched.
// Failures of individual targets do not stop the others; all of them are
// returned together once every task has finished.
func Dereference(ctx context.Context, doc *raml.Document, opts Options) error {
	if doc == nil || doc.Root == nil {
		return &raml.Error{Code: raml.InputError, Stage: stage, Message: "document is empty"}
	}
	logger := logging.OrDiscard(opts.Logger)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	documentDir := opts.DocumentDir
	if documentDir == "" {
		documentDir = doc.BaseDir
	}
	schemaDir := opts.SchemaDir
	if schemaDir == "" {
		schemaDir = documentDir
	}

	r := &resolver{
		storage: raml.NewStorage(opts.FS),
		cache:   map[string]any{},
	}
	targets := Targets(doc.Root)

	var (
		mu   sync.Mutex
		errs []*raml.Error
	)
	var g errgroup.Group
	g.SetLimit(limit)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, &raml.Error{Code: raml.InputError, Stage: stage, Path: target.Path, Message: "cancelled", Cause: err})
				mu.Unlock()
				return nil
			}
			out, changed, err := r.dereference(ctx, target, schemaDir, documentDir)
			if err != nil {
				err.Document = doc.Name
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			if changed {
				raml.SetString(target.Node, out)
				logger.Debug("dereferenced schema", "document", doc.Name, "stage", stage, "path", target.Path.String())
			}
			return nil
		})
	}
	// tasks collect their failures in errs and always return nil
	_ = g.Wait()

	logger.Debug("dereference finished", "document", doc.Name, "stage", stage, "count", len(targets))
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Path.String() < errs[j].Path.String() })
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

// dereference resolves one target. changed is false when the value is left as
// is (templates, XML).
func (r *resolver) dereference(ctx context.Context, target Target, schemaDir, documentDir string) (string, bool, *raml.Error) {
	text := strings.TrimSpace(target.Node.Value)
	if TemplateParam.MatchString(text) || strings.HasPrefix(text, "<") {
		return "", false, nil
	}
	if !looksLikeJSON(text) {
		location := raml.JoinLocation(documentDir, text)
		if text == "" || !r.storage.Exists(ctx, location) {
			return "", false, &raml.Error{Code: raml.ParseError, Stage: stage, Path: target.Path,
				Message: "schema is neither JSON nor a readable file", Snippet: target.Node.Value}
		}
		data, err := r.storage.Read(ctx, location)
		if err != nil {
			return "", false, &raml.Error{Code: raml.InputError, Stage: stage, Path: target.Path, Message: "read schema file", Cause: err}
		}
		text = string(data)
	}

	value, err := decode([]byte(text))
	if err != nil {
		return "", false, &raml.Error{Code: raml.ParseError, Stage: stage, Path: target.Path,
			Message: "invalid schema JSON", Snippet: target.Node.Value, Cause: err}
	}
	root := scope{base: schemaDir, id: "#" + target.Path.String(), root: value}
	resolved, err := r.resolve(ctx, value, root, nil)
	if err != nil {
		return "", false, &raml.Error{Code: raml.ReferenceError, Stage: stage, Path: target.Path,
			Message: "resolve $ref", Cause: err}
	}
	out, err := raml.MarshalJSONIndent(resolved, "  ")
	if err != nil {
		return "", false, &raml.Error{Code: raml.ParseError, Stage: stage, Path: target.Path, Message: "encode schema", Cause: err}
	}
	return string(out), true, nil
}

func looksLikeJSON(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected content after JSON value")
	}
	return v, nil
}
