// Package normalize rewrites the parser-native resources/methods sequences of
// a RAML tree into mappings keyed by relative URI and HTTP verb.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/logging"
	"github.com/mark3labs/ramlgen/internal/raml"
)

const stage = "normalize"

// collection kinds and the item field that names the new key.
var discriminators = map[string]string{
	"resources": "relativeUri",
	"methods":   "method",
}

// marker fields removed from each moved item, per collection kind.
var markers = map[string][]string{
	"resources": {"relativeUri", "relativeUriPathSegments"},
	"methods":   {"method"},
}

// Settings configures Normalize.
type Settings struct {
	Logger *slog.Logger
}

// Option mutates Settings.
type Option func(*Settings)

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option { return func(s *Settings) { s.Logger = l } }

type collection struct {
	parentPath raml.Path
	parent     *yaml.Node
	key        string
}

// Normalize mutates doc in place. Collections are collected first and
// rewritten deepest-first so that nested resources are already keyed before
// their ancestors move.
func Normalize(ctx context.Context, doc *raml.Document, opts ...Option) error {
	var settings Settings
	for _, opt := range opts {
		opt(&settings)
	}
	logger := logging.OrDiscard(settings.Logger)
	if doc == nil || doc.Root == nil || doc.Root.Kind != yaml.MappingNode {
		name := ""
		if doc != nil {
			name = doc.Name
		}
		return &raml.Error{Code: raml.InputError, Stage: stage, Document: name, Message: "document root must be a mapping"}
	}

	var found []collection
	raml.Walk(doc.Root, func(path raml.Path, node, parent *yaml.Node) bool {
		if node.Kind != yaml.MappingNode {
			return true
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i].Value, node.Content[i+1]
			if _, ok := discriminators[key]; ok && value.Kind == yaml.SequenceNode {
				found = append(found, collection{parentPath: path, parent: node, key: key})
			}
		}
		return true
	})
	sort.SliceStable(found, func(i, j int) bool {
		if len(found[i].parentPath) != len(found[j].parentPath) {
			return len(found[i].parentPath) > len(found[j].parentPath)
		}
		return found[i].parentPath.Child(found[i].key).String() < found[j].parentPath.Child(found[j].key).String()
	})

	for _, c := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := collapse(c); err != nil {
			err.Document = doc.Name
			return err
		}
	}
	removeVersionParameter(doc.Root)
	logger.Debug("normalized", "document", doc.Name, "stage", stage, "count", len(found))
	return nil
}

// collapse splices the items of one collection into its parent mapping in
// place of the collection key.
func collapse(c collection) *raml.Error {
	idx := raml.MappingIndex(c.parent, c.key)
	if idx < 0 {
		return nil
	}
	seq := c.parent.Content[idx+1]
	field := discriminators[c.key]
	itemsPath := c.parentPath.Child(c.key)

	entries := make([]*yaml.Node, 0, 2*len(seq.Content))
	for i, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			return &raml.Error{Code: raml.StructuralError, Stage: stage, Path: itemsPath.Index(i),
				Message: fmt.Sprintf("%s item must be a mapping", c.key)}
		}
		name, ok := raml.MappingString(item, field)
		if !ok || strings.TrimSpace(name) == "" {
			return &raml.Error{Code: raml.StructuralError, Stage: stage, Path: itemsPath.Index(i),
				Message: fmt.Sprintf("%s item is missing %q", c.key, field)}
		}
		for _, m := range markers[c.key] {
			raml.DeleteMappingKey(item, m)
		}
		entries = append(entries, raml.StringNode(name), item)
	}

	rest := make([]*yaml.Node, 0, len(c.parent.Content)-2+len(entries))
	rest = append(rest, c.parent.Content[:idx]...)
	rest = append(rest, c.parent.Content[idx+2:]...)
	c.parent.Content = rest
	insertAt := idx
	for i := 0; i+1 < len(entries); i += 2 {
		key := entries[i].Value
		if j := raml.MappingIndex(c.parent, key); j >= 0 {
			c.parent.Content[j+1] = entries[i+1]
			continue
		}
		c.parent.Content = append(c.parent.Content[:insertAt], append([]*yaml.Node{entries[i], entries[i+1]}, c.parent.Content[insertAt:]...)...)
		insertAt += 2
	}
	return nil
}

// removeVersionParameter drops the baseUriParameters.version entry the RAML
// parser synthesizes, and baseUriParameters itself when nothing else is left.
func removeVersionParameter(root *yaml.Node) {
	params := raml.MappingValue(root, "baseUriParameters")
	if params == nil || params.Kind != yaml.MappingNode {
		return
	}
	raml.DeleteMappingKey(params, "version")
	if len(params.Content) == 0 {
		raml.DeleteMappingKey(root, "baseUriParameters")
	}
}
