package raml

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/logging"
)

const (
	// Header is the first line of every RAML 0.8 document.
	Header = "#%RAML 0.8"

	includeTag = "!include"
)

// Verbs are the HTTP methods recognised as method keys on a resource.
var Verbs = map[string]struct{}{
	"get": {}, "post": {}, "put": {}, "delete": {}, "patch": {},
	"head": {}, "options": {}, "trace": {}, "connect": {},
}

// Settings configures loader behavior.
type Settings struct {
	// Lenient skips the "#%RAML 0.8" header check, e.g. for JSON input.
	Lenient bool
	// FS reads the root file and every !include target.
	FS afs.Service
	// Logger receives debug output; nil discards.
	Logger *slog.Logger
}

// Option mutates Settings.
type Option func(*Settings)

func WithLenientHeader() Option        { return func(s *Settings) { s.Lenient = true } }
func WithFS(fs afs.Service) Option     { return func(s *Settings) { s.FS = fs } }
func WithLogger(l *slog.Logger) Option { return func(s *Settings) { s.Logger = l } }

// LoadFile reads a RAML file (local path or afs URL) and loads it.
func LoadFile(ctx context.Context, location string, opts ...Option) (*Document, error) {
	if strings.TrimSpace(location) == "" {
		return nil, &Error{Code: InputError, Stage: "load", Message: "input is empty"}
	}
	if !IsURL(location) {
		if abs, err := filepath.Abs(location); err == nil {
			location = abs
		}
	}
	settings := newSettings(opts)
	data, err := NewStorage(settings.FS).Read(ctx, location)
	if err != nil {
		return nil, &Error{Code: InputError, Stage: "load", Document: location, Message: "read file", Cause: err}
	}
	return Load(ctx, location, data, opts...)
}

// Load parses RAML text into the parser-native tree: resources and methods are
// carried in "resources"/"methods" sequences whose items hold "relativeUri" and
// "method" discriminator fields.
func Load(ctx context.Context, name string, data []byte, opts ...Option) (*Document, error) {
	settings := newSettings(opts)
	if !settings.Lenient {
		if err := checkHeader(name, data); err != nil {
			return nil, err
		}
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{Code: ParseError, Stage: "load", Document: name, Message: "parse RAML", Cause: err}
	}
	doc := NewDocument(name, ParentLocation(name), &root)
	if doc.Root == nil || doc.Root.Kind != yaml.MappingNode {
		return nil, &Error{Code: InputError, Stage: "load", Document: name, Message: "document root must be a mapping"}
	}

	l := &loader{
		storage: NewStorage(settings.FS),
		logger:  logging.OrDiscard(settings.Logger),
		name:    name,
	}
	expandAliases(doc.Root)
	if err := l.resolveIncludes(ctx, doc.Root, nil, doc.BaseDir, []string{name}); err != nil {
		return nil, err
	}
	substituteNamedSchemas(doc.Root)
	if err := toNative(doc.Root, nil, false); err != nil {
		return nil, withDocument(err, name)
	}
	synthesizeVersionParameter(doc.Root)
	return doc, nil
}

func newSettings(opts []Option) Settings {
	var s Settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func checkHeader(name string, data []byte) error {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	line := strings.TrimSpace(string(first))
	if strings.HasPrefix(line, Header) {
		return nil
	}
	msg := "missing RAML header (expected '" + Header + "')"
	if strings.HasPrefix(line, "#%RAML") {
		msg = fmt.Sprintf("unsupported RAML version %q (only 0.8 is supported)", strings.TrimPrefix(line, "#%RAML "))
	}
	return &Error{Code: InputError, Stage: "load", Document: name, Message: msg}
}

type loader struct {
	storage *Storage
	logger  *slog.Logger
	name    string
}

// resolveIncludes replaces every !include scalar with the referenced content.
func (l *loader) resolveIncludes(ctx context.Context, node *yaml.Node, path Path, baseDir string, stack []string) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != includeTag {
			return nil
		}
		return l.include(ctx, node, path, baseDir, stack)
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if err := l.resolveIncludes(ctx, node.Content[i+1], path.Child(node.Content[i].Value), baseDir, stack); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, c := range node.Content {
			if err := l.resolveIncludes(ctx, c, path.Index(i), baseDir, stack); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *loader) include(ctx context.Context, node *yaml.Node, path Path, baseDir string, stack []string) error {
	target := strings.TrimSpace(node.Value)
	location := JoinLocation(baseDir, target)
	for _, seen := range stack {
		if seen == location {
			return &Error{Code: InputError, Stage: "load", Document: l.name, Path: path, Message: fmt.Sprintf("circular include of %s", target)}
		}
	}
	data, err := l.storage.Read(ctx, location)
	if err != nil {
		return &Error{Code: InputError, Stage: "load", Document: l.name, Path: path, Message: fmt.Sprintf("include %s", target), Cause: err}
	}
	l.logger.Debug("included file", "document", l.name, "path", path.String(), "location", location)

	switch strings.ToLower(filepath.Ext(target)) {
	case ".raml", ".yaml", ".yml":
		var included yaml.Node
		if err := yaml.Unmarshal(data, &included); err != nil {
			return &Error{Code: ParseError, Stage: "load", Document: l.name, Path: path, Message: fmt.Sprintf("parse include %s", target), Cause: err}
		}
		content := &included
		if content.Kind == yaml.DocumentNode {
			if len(content.Content) == 0 {
				SetString(node, "")
				return nil
			}
			content = content.Content[0]
		}
		expandAliases(content)
		next := append(stack[:len(stack):len(stack)], location)
		if err := l.resolveIncludes(ctx, content, path, ParentLocation(location), next); err != nil {
			return err
		}
		*node = *content
	default:
		SetString(node, string(data))
	}
	return nil
}

func expandAliases(node *yaml.Node) {
	for i, c := range node.Content {
		if c.Kind == yaml.AliasNode {
			node.Content[i] = Clone(c.Alias)
		}
		expandAliases(node.Content[i])
	}
}

// substituteNamedSchemas replaces "schema: <name>" values with the content of
// the named entry of the root schemas library.
func substituteNamedSchemas(root *yaml.Node) {
	library := map[string]string{}
	schemas := MappingValue(root, "schemas")
	collect := func(m *yaml.Node) {
		if m == nil || m.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(m.Content); i += 2 {
			if IsString(m.Content[i+1]) {
				library[m.Content[i].Value] = m.Content[i+1].Value
			}
		}
	}
	if schemas != nil {
		switch schemas.Kind {
		case yaml.SequenceNode:
			for _, item := range schemas.Content {
				collect(item)
			}
		case yaml.MappingNode:
			collect(schemas)
		}
	}
	if len(library) == 0 {
		return
	}
	Walk(root, func(path Path, node, parent *yaml.Node) bool {
		if path.Last() != "schema" || !IsString(node) {
			return true
		}
		if content, ok := library[strings.TrimSpace(node.Value)]; ok {
			SetString(node, content)
		}
		return true
	})
}

// toNative moves "/resource" keys into a resources sequence and, on
// resources, verb keys into a methods sequence.
func toNative(node *yaml.Node, path Path, isResource bool) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	var (
		kept         []*yaml.Node
		resources    []*yaml.Node
		methods      []*yaml.Node
		resourcesPos = -1
		methodsPos   = -1
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch {
		case strings.HasPrefix(key.Value, "/"):
			body, err := asMapping(value, path.Child(key.Value))
			if err != nil {
				return err
			}
			if err := toNative(body, path.Child(key.Value), true); err != nil {
				return err
			}
			item := MappingNode()
			item.Content = append(item.Content,
				StringNode("relativeUri"), StringNode(key.Value),
				StringNode("relativeUriPathSegments"), pathSegments(key.Value),
			)
			item.Content = append(item.Content, body.Content...)
			if resourcesPos < 0 {
				resourcesPos = len(kept)
			}
			resources = append(resources, item)
		case isResource && isVerb(key.Value):
			body, err := asMapping(value, path.Child(key.Value))
			if err != nil {
				return err
			}
			item := MappingNode()
			item.Content = append(item.Content, StringNode("method"), StringNode(key.Value))
			item.Content = append(item.Content, body.Content...)
			if methodsPos < 0 {
				methodsPos = len(kept)
			}
			methods = append(methods, item)
		default:
			kept = append(kept, key, value)
		}
	}
	if resources == nil && methods == nil {
		return nil
	}
	type insertion struct {
		pos  int
		key  string
		item *yaml.Node
	}
	var inserts []insertion
	if methods != nil {
		inserts = append(inserts, insertion{methodsPos, "methods", SequenceNode(methods...)})
	}
	if resources != nil {
		inserts = append(inserts, insertion{resourcesPos, "resources", SequenceNode(resources...)})
	}
	if len(inserts) == 2 && inserts[1].pos < inserts[0].pos {
		inserts[0], inserts[1] = inserts[1], inserts[0]
	}
	out := make([]*yaml.Node, 0, len(kept)+4)
	last := 0
	for _, ins := range inserts {
		out = append(out, kept[last:ins.pos]...)
		out = append(out, StringNode(ins.key), ins.item)
		last = ins.pos
	}
	out = append(out, kept[last:]...)
	node.Content = out
	return nil
}

func asMapping(value *yaml.Node, path Path) (*yaml.Node, error) {
	switch {
	case value.Kind == yaml.MappingNode:
		return value, nil
	case value.Kind == yaml.ScalarNode && (value.Tag == "!!null" || value.Value == ""):
		return MappingNode(), nil
	default:
		return nil, &Error{Code: StructuralError, Stage: "load", Path: path, Message: "resource or method must be a mapping"}
	}
}

func isVerb(key string) bool {
	_, ok := Verbs[key]
	return ok
}

func pathSegments(uri string) *yaml.Node {
	seq := SequenceNode()
	for _, seg := range strings.Split(uri, "/") {
		if seg != "" {
			seq.Content = append(seq.Content, StringNode(seg))
		}
	}
	return seq
}

// synthesizeVersionParameter adds baseUriParameters.version the way the RAML
// parser does when baseUri is versioned.
func synthesizeVersionParameter(root *yaml.Node) {
	baseURI, ok := MappingString(root, "baseUri")
	if !ok || !strings.Contains(baseURI, "{version}") {
		return
	}
	version, ok := MappingString(root, "version")
	if !ok {
		return
	}
	params := MappingValue(root, "baseUriParameters")
	if params == nil || params.Kind != yaml.MappingNode {
		params = MappingNode()
		SetMappingValue(root, "baseUriParameters", params)
	}
	if MappingIndex(params, "version") >= 0 {
		return
	}
	param := MappingNode()
	param.Content = append(param.Content,
		StringNode("type"), StringNode("string"),
		StringNode("required"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
		StringNode("displayName"), StringNode("version"),
		StringNode("enum"), SequenceNode(StringNode(version)),
	)
	SetMappingValue(params, "version", param)
}

func withDocument(err error, name string) error {
	if e, ok := err.(*Error); ok && e.Document == "" {
		e.Document = name
	}
	return err
}
