// Package examples validates the example payloads of a RAML tree against
// their sibling JSON schemas.
package examples

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/deref"
	"github.com/mark3labs/ramlgen/internal/diag"
	"github.com/mark3labs/ramlgen/internal/logging"
	"github.com/mark3labs/ramlgen/internal/raml"
)

const stage = "examples"

// Rule identifiers attached to the diagnostics of this package.
const (
	RuleMismatch       = "example-schema-mismatch"
	RuleMissingExample = "schema-missing-example"
	RuleMissingSchema  = "example-missing-schema"
	RuleUnresolvedRef  = "missing-schema"
	RuleXMLSkipped     = "xml-schema-skipped"
	RuleUnchecked      = "unchecked-keyword"
)

var codes = map[string]string{
	RuleMismatch:       "E0101",
	RuleMissingExample: "W0101",
	RuleMissingSchema:  "W0102",
	RuleUnresolvedRef:  "I0101",
	RuleXMLSkipped:     "I0102",
	RuleUnchecked:      "I0103",
}

// Options configures Validate.
type Options struct {
	Logger *slog.Logger
}

// walkState is owned by a single Validate call.
type walkState struct {
	ctx       context.Context
	doc       *raml.Document
	report    *diag.Report
	seen      map[string]struct{}
	converter *converter
	fatal     error
	pairs     int
}

// Validate pairs every schema with its sibling example and validates the
// example against the schema. Findings go to the returned report; the walk
// never stops on a finding. The error is non-nil only for fatal problems such
// as unparsable JSON.
func Validate(ctx context.Context, doc *raml.Document, opts Options) (*diag.Report, error) {
	if doc == nil || doc.Root == nil {
		return nil, &raml.Error{Code: raml.InputError, Stage: stage, Message: "document is empty"}
	}
	logger := logging.OrDiscard(opts.Logger)
	st := &walkState{
		ctx:       ctx,
		doc:       doc,
		report:    diag.NewReport(stage, doc.Name),
		seen:      map[string]struct{}{},
		converter: newConverter(),
	}
	raml.Walk(doc.Root, st.visit)
	if st.fatal != nil {
		return st.report, st.fatal
	}
	st.info(RuleUnresolvedRef, "Missing Schemas", st.converter.Missing())
	st.info(RuleUnchecked, "Unchecked Keywords", st.converter.Unchecked())
	logger.Debug("validated examples", "document", doc.Name, "stage", stage, "count", st.pairs)
	return st.report, nil
}

func (st *walkState) visit(path raml.Path, node, parent *yaml.Node) bool {
	if st.fatal != nil {
		return false
	}
	if err := st.ctx.Err(); err != nil {
		st.fatal = err
		return false
	}
	if parent == nil || parent.Kind != yaml.MappingNode {
		return true
	}
	switch path.Last() {
	case "schema":
		example := raml.MappingValue(parent, "example")
		if !st.markNew(path.Parent()) {
			return true
		}
		if present(example) {
			st.validatePair(path.Parent(), node, example)
		} else {
			st.warn(RuleMissingExample, "schema "+path.String()+" missing example", path)
		}
	case "example":
		if !path.Contains("body") {
			return true
		}
		schema := raml.MappingValue(parent, "schema")
		if !st.markNew(path.Parent()) {
			return true
		}
		if present(schema) {
			st.validatePair(path.Parent(), schema, node)
		} else {
			st.warn(RuleMissingSchema, "example "+path.String()+" missing schema", path)
		}
	}
	return true
}

// markNew records parentPath and reports whether it was seen for the first
// time.
func (st *walkState) markNew(parentPath raml.Path) bool {
	key := parentPath.String()
	if _, ok := st.seen[key]; ok {
		return false
	}
	st.seen[key] = struct{}{}
	return true
}

func (st *walkState) warn(rule, msg string, path raml.Path) {
	st.report.Add(diag.Diagnostic{
		Level:   diag.LevelWarning,
		Rule:    rule,
		Code:    codes[rule],
		Message: "Warning: " + msg,
		Path:    path.String(),
	})
}

// info adds one info diagnostic listing items, if there are any.
func (st *walkState) info(rule, title string, items []string) {
	if len(items) == 0 {
		return
	}
	list, _ := raml.MarshalJSONIndent(items, "  ")
	st.report.Add(diag.Diagnostic{
		Level:   diag.LevelInfo,
		Rule:    rule,
		Code:    codes[rule],
		Message: title + ": " + string(list),
	})
}

func (st *walkState) validatePair(parentPath raml.Path, schemaNode, exampleNode *yaml.Node) {
	schemaText, err := text(schemaNode)
	if err != nil {
		st.fail(raml.ParseError, parentPath.Child("schema"), "encode schema", "", err)
		return
	}
	exampleText, err := text(exampleNode)
	if err != nil {
		st.fail(raml.ParseError, parentPath.Child("example"), "encode example", "", err)
		return
	}
	if deref.TemplateParam.MatchString(schemaText) || deref.TemplateParam.MatchString(exampleText) {
		return
	}
	trimmed := strings.TrimSpace(schemaText)
	if strings.HasPrefix(trimmed, "<") {
		st.report.Add(diag.Diagnostic{
			Level:   diag.LevelInfo,
			Rule:    RuleXMLSkipped,
			Code:    codes[RuleXMLSkipped],
			Message: "XML schema at " + parentPath.Child("schema").String() + " is not validated",
			Path:    parentPath.Child("schema").String(),
		})
		return
	}

	var rawSchema any
	if err := json.Unmarshal([]byte(schemaText), &rawSchema); err != nil {
		st.fail(raml.ParseError, parentPath.Child("schema"), "invalid schema JSON", schemaText, err)
		return
	}
	var instance any
	if err := json.Unmarshal([]byte(exampleText), &instance); err != nil {
		st.fail(raml.ParseError, parentPath.Child("example"), "invalid example JSON", exampleText, err)
		return
	}
	schema, err := st.compile(rawSchema, parentPath.Child("schema").String()+"#")
	if err != nil {
		st.fail(raml.ParseError, parentPath.Child("schema"), "unsupported schema", schemaText, err)
		return
	}

	st.pairs++
	err = schema.VisitJSON(instance, openapi3.MultiErrors())
	for _, v := range violations(err) {
		examplePath := parentPath.Child("example").String() + pointer(v.pointer)
		st.report.Add(diag.Diagnostic{
			Level: diag.LevelError,
			Rule:  RuleMismatch,
			Code:  codes[RuleMismatch],
			Message: strings.Join([]string{
				v.reason,
				"at Example path: " + examplePath,
				"Schema path: " + schemaPath(v.pointer, v.field),
				"example:\n" + exampleText,
			}, "\n"),
			Path: examplePath,
		})
	}
}

func (st *walkState) compile(raw any, location string) (*openapi3.Schema, error) {
	data, err := json.Marshal(st.converter.convert(raw, location))
	if err != nil {
		return nil, err
	}
	var schema openapi3.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (st *walkState) fail(code raml.ErrorCode, path raml.Path, msg, snippet string, cause error) {
	st.fatal = &raml.Error{Code: code, Stage: stage, Document: st.doc.Name, Path: path, Message: msg, Snippet: snippet, Cause: cause}
}

type violation struct {
	reason  string
	field   string
	pointer []string
}

// violations flattens the (possibly nested) multi-error returned by
// VisitJSON.
func violations(err error) []violation {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case openapi3.MultiError:
		var out []violation
		for _, inner := range e {
			out = append(out, violations(inner)...)
		}
		return out
	case *openapi3.SchemaError:
		return []violation{{reason: e.Reason, field: e.SchemaField, pointer: e.JSONPointer()}}
	default:
		return []violation{{reason: err.Error()}}
	}
}

func pointer(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
	}
	return "/" + strings.Join(escaped, "/")
}

// schemaPath maps an instance pointer onto the schema keywords that describe
// it: object members live under properties, array elements under items.
func schemaPath(segments []string, field string) string {
	var b strings.Builder
	for _, s := range segments {
		if _, err := strconv.Atoi(s); err == nil {
			b.WriteString("/items")
			continue
		}
		b.WriteString("/properties/")
		b.WriteString(strings.NewReplacer("~", "~0", "/", "~1").Replace(s))
	}
	if field != "" {
		b.WriteString("/")
		b.WriteString(field)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// present mirrors the truthiness check on a sibling value: absent, null and
// empty strings count as missing.
func present(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == yaml.ScalarNode {
		return n.Tag != "!!null" && n.Value != ""
	}
	return true
}

// text returns the JSON text of a schema or example. Structured YAML values
// are encoded to JSON.
func text(n *yaml.Node) (string, error) {
	if raml.IsString(n) {
		return n.Value, nil
	}
	data, err := raml.EncodeJSON(n, "")
	if err != nil {
		return "", fmt.Errorf("encode %s node: %w", n.ShortTag(), err)
	}
	return string(data), nil
}
