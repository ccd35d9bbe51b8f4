// Package render writes the finalized RAML tree as a documentation artifact.
package render

import (
	"fmt"
	"strings"

	"github.com/mark3labs/ramlgen/internal/fixer"
	"github.com/mark3labs/ramlgen/internal/raml"
)

// Format selects the artifact type.
type Format string

const (
	FormatRAML Format = "raml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatRAML, FormatJSON, FormatYAML}

// ParseFormat accepts a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatRAML, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q (expected raml, json or yaml)", s)
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	default:
		return ".raml"
	}
}

// Render serializes doc in format f.
func Render(doc *raml.Document, f Format) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, &raml.Error{Code: raml.InputError, Stage: "render", Message: "document is empty"}
	}
	switch f {
	case FormatRAML:
		return fixer.Render(doc)
	case FormatJSON:
		out, err := raml.EncodeJSON(doc.Root, "  ")
		if err != nil {
			return nil, &raml.Error{Code: raml.InputError, Stage: "render", Document: doc.Name, Message: "encode json", Cause: err}
		}
		return append(out, '\n'), nil
	case FormatYAML:
		out, err := raml.EncodeYAML(doc.Root)
		if err != nil {
			return nil, &raml.Error{Code: raml.InputError, Stage: "render", Document: doc.Name, Message: "encode yaml", Cause: err}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}
