package render

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/raml"
)

func doc(t *testing.T) *raml.Document {
	t.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte("title: Widgets\n/widgets:\n  get:\n    description: >\n      list all\n"), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return raml.NewDocument("api.raml", "", &n)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	cases := map[string]Format{"raml": FormatRAML, "JSON": FormatJSON, " yml ": FormatYAML, "yaml": FormatYAML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("html"); err == nil {
		t.Fatalf("html should be rejected")
	}
	if FormatJSON.Extension() != ".json" || FormatRAML.Extension() != ".raml" || FormatYAML.Extension() != ".yaml" {
		t.Fatalf("unexpected extensions")
	}
}

func TestRender_Formats(t *testing.T) {
	t.Parallel()
	out, err := Render(doc(t), FormatRAML)
	if err != nil {
		t.Fatalf("raml: %v", err)
	}
	if !strings.HasPrefix(string(out), "#%RAML 0.8\n---\n") || !strings.Contains(string(out), "description: |") {
		t.Fatalf("raml output: %q", out)
	}

	out, err = Render(doc(t), FormatJSON)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("json output invalid: %v\n%s", err, out)
	}
	if v["title"] != "Widgets" || !strings.HasPrefix(string(out), "{\n  \"title\"") {
		t.Fatalf("json output: %s", out)
	}

	out, err = Render(doc(t), FormatYAML)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if strings.HasPrefix(string(out), "#%RAML") || !strings.HasPrefix(string(out), "title: Widgets\n") {
		t.Fatalf("yaml output: %q", out)
	}

	if _, err := Render(doc(t), Format("html")); err == nil {
		t.Fatalf("expected error for html")
	}
}
