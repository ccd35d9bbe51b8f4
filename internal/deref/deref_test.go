package deref

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/raml"
)

func upload(t *testing.T, fs afs.Service, url, content string) {
	t.Helper()
	if err := fs.Upload(context.Background(), url, file.DefaultFileOsMode, strings.NewReader(content)); err != nil {
		t.Fatalf("upload %s: %v", url, err)
	}
}

func newDoc(t *testing.T, src string) *raml.Document {
	t.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return raml.NewDocument("api.raml", "mem://localhost/deref/doc", &n)
}

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func containsRef(v any) bool {
	switch x := v.(type) {
	case map[string]any:
		if _, ok := x["$ref"]; ok {
			return true
		}
		for _, c := range x {
			if containsRef(c) {
				return true
			}
		}
	case []any:
		for _, c := range x {
			if containsRef(c) {
				return true
			}
		}
	}
	return false
}

func TestIsTarget(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"/a/post/body/application~1json/schema": true,
		"schemas/0/widget":                      true,
		"schemas/widget":                        true,
		"/a/post/body/application~1json/example": false,
		"title":                                 false,
	}
	for p, want := range cases {
		if got := IsTarget(raml.Path(strings.Split(p, "/"))); got != want {
			t.Errorf("IsTarget(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestDereference_ExternalAndInternalRefs(t *testing.T) {
	t.Parallel()
	fs := afs.New()
	base := "mem://localhost/deref/ext"
	upload(t, fs, base+"/common.json", `{"definitions":{"id":{"type":"string","pattern":"^[a-z]+$"},"ref":{"$ref":"#/definitions/id"}}}`)
	upload(t, fs, base+"/sub/tag.json", `{"type":"object","properties":{"id":{"$ref":"../common.json#/definitions/ref"}}}`)

	doc := newDoc(t, `
schemas:
  - widget: '{"type":"object","properties":{"id":{"$ref":"common.json#/definitions/id"},"tag":{"$ref":"sub/tag.json"},"self":{"$ref":"#/definitions/n"}},"definitions":{"n":{"type":"integer"}}}'
/widgets:
  post:
    body:
      application/json:
        schema: '{"type":"array","items":{"$ref":"common.json#/definitions/ref","description":"dropped"}}'
`)
	if err := Dereference(context.Background(), doc, Options{SchemaDir: base, FS: fs, Concurrency: 2}); err != nil {
		t.Fatalf("dereference: %v", err)
	}
	for _, target := range Targets(doc.Root) {
		v := decodeJSON(t, target.Node.Value)
		if containsRef(v) {
			t.Fatalf("$ref left at %s: %s", target.Path, target.Node.Value)
		}
	}
	widget := decodeJSON(t, raml.Lookup(doc.Root, raml.Path{"schemas", "0", "widget"}).Value).(map[string]any)
	props := widget["properties"].(map[string]any)
	if props["id"].(map[string]any)["pattern"] != "^[a-z]+$" {
		t.Fatalf("external ref not inlined: %v", props["id"])
	}
	tagID := props["tag"].(map[string]any)["properties"].(map[string]any)["id"].(map[string]any)
	if tagID["type"] != "string" {
		t.Fatalf("nested relative ref not resolved against its own folder: %v", tagID)
	}
	if props["self"].(map[string]any)["type"] != "integer" {
		t.Fatalf("internal ref not inlined: %v", props["self"])
	}
	items := decodeJSON(t, raml.Lookup(doc.Root, raml.Path{"/widgets", "post", "body", "application/json", "schema"}).Value).(map[string]any)["items"].(map[string]any)
	if _, ok := items["description"]; ok {
		t.Fatalf("sibling keys of $ref must be dropped: %v", items)
	}
}

func TestDereference_NoRefUnchanged(t *testing.T) {
	t.Parallel()
	in := `{"type":"object","required":["a"],"properties":{"a":{"type":"number","maximum":10.5}}}`
	doc := newDoc(t, "schema: '"+in+"'\n")
	if err := Dereference(context.Background(), doc, Options{FS: afs.New()}); err != nil {
		t.Fatalf("dereference: %v", err)
	}
	out := raml.MappingValue(doc.Root, "schema").Value
	if !reflect.DeepEqual(decodeJSON(t, in), decodeJSON(t, out)) {
		t.Fatalf("schema changed:\n%s", out)
	}
	if !strings.Contains(out, "\n  \"properties\"") {
		t.Fatalf("expected two-space indentation:\n%s", out)
	}
}

func TestDereference_SkipsTemplatesAndXML(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "schemas:\n  - t: <<schemaName>>\n  - x: <xs:schema/>\nschema: '{\"$ref\": \"<<resourcePath>>.json\"}'\n")
	if err := Dereference(context.Background(), doc, Options{FS: afs.New()}); err != nil {
		t.Fatalf("dereference: %v", err)
	}
	if v := raml.Lookup(doc.Root, raml.Path{"schemas", "0", "t"}).Value; v != "<<schemaName>>" {
		t.Fatalf("template changed: %q", v)
	}
	if v := raml.Lookup(doc.Root, raml.Path{"schemas", "1", "x"}).Value; v != "<xs:schema/>" {
		t.Fatalf("xml changed: %q", v)
	}
}

func TestDereference_SchemaFileRelativeToDocument(t *testing.T) {
	t.Parallel()
	fs := afs.New()
	upload(t, fs, "mem://localhost/deref/doc/schema/a.json", `{"type":"string"}`)
	doc := newDoc(t, "schema: schema/a.json\n")
	if err := Dereference(context.Background(), doc, Options{FS: fs}); err != nil {
		t.Fatalf("dereference: %v", err)
	}
	if got := decodeJSON(t, raml.MappingValue(doc.Root, "schema").Value); !reflect.DeepEqual(got, map[string]any{"type": "string"}) {
		t.Fatalf("schema file not loaded: %v", got)
	}
}

func TestDereference_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	fs := afs.New()
	doc := newDoc(t, `
a:
  schema: '{"type":'
b:
  schema: '{"$ref":"missing.json"}'
c:
  schema: '{"$ref":"#/definitions/loop","definitions":{"loop":{"$ref":"#/definitions/loop"}}}'
d:
  schema: '{"type":"string"}'
`)
	err := Dereference(context.Background(), doc, Options{SchemaDir: "mem://localhost/deref/none", FS: fs})
	if err == nil {
		t.Fatalf("expected errors")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined error, got %T", err)
	}
	errs := joined.Unwrap()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), err)
	}
	wantCodes := []raml.ErrorCode{raml.ParseError, raml.ReferenceError, raml.ReferenceError}
	for i, e := range errs {
		var re *raml.Error
		if !errors.As(e, &re) || re.Code != wantCodes[i] {
			t.Fatalf("error %d: expected %s, got %v", i, wantCodes[i], e)
		}
	}
	if !strings.Contains(err.Error(), "circular") {
		t.Fatalf("expected circular ref report: %v", err)
	}
	if !strings.Contains(raml.MappingValue(raml.MappingValue(doc.Root, "d"), "schema").Value, "\n") {
		t.Fatalf("healthy target should still be dereferenced")
	}
}
