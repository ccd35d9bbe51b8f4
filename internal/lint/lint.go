// Package lint checks a parser-native RAML tree for common style and
// completeness problems.
package lint

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/diag"
	"github.com/mark3labs/ramlgen/internal/logging"
	"github.com/mark3labs/ramlgen/internal/raml"
)

// DefaultURLPattern accepts lower-case, dash separated segments and
// camel-cased URI parameters.
const DefaultURLPattern = `^\/([a-z]+(-[a-z]+)*|{[a-z]+([A-Z][a-z]+)*})$`

// Rule describes one lint check.
type Rule struct {
	ID    string
	Level diag.Level
	Code  string
	Hint  string
}

// Rules lists every check in report order.
var Rules = []Rule{
	{ID: "api_title", Level: diag.LevelError, Code: "E0001", Hint: "Add a 'title' property at the root of the document."},
	{ID: "base_uri", Level: diag.LevelWarning, Code: "W0001", Hint: "Add a 'baseUri' property at the root of the document."},
	{ID: "api_version", Level: diag.LevelInfo, Code: "I0001", Hint: "baseUri uses {version}; define 'version' at the root."},
	{ID: "url_lower", Level: diag.LevelWarning, Code: "W0002", Hint: "Use lower case, dash separated resource names."},
	{ID: "resource_desc", Level: diag.LevelInfo, Code: "I0002"},
	{ID: "method_desc", Level: diag.LevelInfo, Code: "I0003"},
	{ID: "response_code", Level: diag.LevelWarning, Code: "W0003", Hint: "Document at least one response code."},
}

var rulesByID = func() map[string]Rule {
	m := make(map[string]Rule, len(Rules))
	for _, r := range Rules {
		m[r.ID] = r
	}
	return m
}()

// Options configures Lint.
type Options struct {
	// URLPattern overrides DefaultURLPattern for the url_lower rule.
	URLPattern string
	// Disabled rule IDs are skipped.
	Disabled []string
	Logger   *slog.Logger
}

// Lint inspects doc without changing it. It must run before normalization
// since resources and methods are read from their native sequences.
func Lint(doc *raml.Document, opts Options) (*diag.Report, error) {
	if doc == nil || doc.Root == nil {
		return nil, &raml.Error{Code: raml.InputError, Stage: "lint", Message: "document is empty"}
	}
	pattern := opts.URLPattern
	if pattern == "" {
		pattern = DefaultURLPattern
	}
	urlRe, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &raml.Error{Code: raml.InputError, Stage: "lint", Message: fmt.Sprintf("invalid url pattern %q", pattern), Cause: err}
	}
	l := &linter{
		report:   diag.NewReport("lint", doc.Name),
		disabled: map[string]bool{},
		urlRe:    urlRe,
	}
	for _, id := range opts.Disabled {
		l.disabled[strings.TrimSpace(id)] = true
	}

	root := doc.Root
	if title, ok := raml.MappingString(root, "title"); !ok || strings.TrimSpace(title) == "" {
		l.add("api_title", "API title is missing", raml.Path{"title"})
	}
	baseURI, hasBase := raml.MappingString(root, "baseUri")
	if !hasBase {
		l.add("base_uri", "API baseUri is missing", raml.Path{"baseUri"})
	}
	if _, ok := raml.MappingString(root, "version"); !ok && strings.Contains(baseURI, "{version}") {
		l.add("api_version", "API version is missing", raml.Path{"version"})
	}
	l.resources(root, nil)

	logging.OrDiscard(opts.Logger).Debug("linted", "document", doc.Name, "stage", "lint", "count", len(l.report.Diagnostics))
	return l.report, nil
}

type linter struct {
	report   *diag.Report
	disabled map[string]bool
	urlRe    *regexp.Regexp
}

func (l *linter) add(id, msg string, path raml.Path) {
	if l.disabled[id] {
		return
	}
	rule := rulesByID[id]
	l.report.Add(diag.Diagnostic{
		Level:   rule.Level,
		Rule:    rule.ID,
		Message: msg,
		Code:    rule.Code,
		Hint:    rule.Hint,
		Path:    path.String(),
	})
}

func (l *linter) resources(parent *yaml.Node, path raml.Path) {
	seq := raml.MappingValue(parent, "resources")
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return
	}
	for i, res := range seq.Content {
		resPath := path.Child("resources").Index(i)
		if res.Kind != yaml.MappingNode {
			continue
		}
		uri, _ := raml.MappingString(res, "relativeUri")
		if !l.urlRe.MatchString(uri) {
			l.add("url_lower", fmt.Sprintf("resource %q does not match %s", uri, l.urlRe.String()), resPath)
		}
		if !hasText(res, "description") {
			l.add("resource_desc", fmt.Sprintf("resource %q has no description", uri), resPath)
		}
		if methods := raml.MappingValue(res, "methods"); methods != nil && methods.Kind == yaml.SequenceNode {
			for j, m := range methods.Content {
				mPath := resPath.Child("methods").Index(j)
				verb, _ := raml.MappingString(m, "method")
				name := strings.ToUpper(verb) + " " + uri
				if !hasText(m, "description") {
					l.add("method_desc", fmt.Sprintf("method %s has no description", name), mPath)
				}
				if r := raml.MappingValue(m, "responses"); r == nil || r.Kind != yaml.MappingNode || len(r.Content) == 0 {
					l.add("response_code", fmt.Sprintf("method %s has no responses", name), mPath)
				}
			}
		}
		l.resources(res, resPath)
	}
}

func hasText(m *yaml.Node, key string) bool {
	v, ok := raml.MappingString(m, key)
	return ok && strings.TrimSpace(v) != ""
}
