package fixer

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/ramlgen/internal/raml"
)

func TestFixFoldedScalars_FoldToLiteral(t *testing.T) {
	t.Parallel()
	in := strings.Join([]string{
		"title: x",
		"description: >",
		"  first line",
		"  second line",
		"",
		"  third",
		"next: value",
		"",
	}, "\n")
	want := strings.Join([]string{
		"title: x",
		"description: |",
		"  first line second line",
		"  third",
		"next: value",
		"",
	}, "\n")
	if got := FixFoldedScalars(in); got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestFixFoldedScalars_ChompingIndicators(t *testing.T) {
	t.Parallel()
	for _, intro := range []string{"a: >-", "a: >+", "a: >++", "a:>"} {
		got := FixFoldedScalars(intro + "\n  x\n  y\nb: 1")
		if got != "a: |\n  x y\nb: 1" {
			t.Errorf("%q: got %q", intro, got)
		}
	}
}

func TestFixFoldedScalars_UntouchedWithoutFolds(t *testing.T) {
	t.Parallel()
	in := "a: |\n  keep\n  lines\nb: 'x > y'\nc: >d\n"
	if got := FixFoldedScalars(in); got != in {
		t.Fatalf("non-folded text changed: %q", got)
	}
}

func TestFixFoldedScalars_NestedIndentAndEOF(t *testing.T) {
	t.Parallel()
	in := "root:\n  desc: >\n    one\n    two\n  other: >-\n    three\n    four"
	want := "root:\n  desc: |\n    one two\n  other: |\n    three four"
	if got := FixFoldedScalars(in); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRender_HeaderAndLiteral(t *testing.T) {
	t.Parallel()
	var n yaml.Node
	src := "title: Widgets\ndescription: >\n  Long text\n  here\nversion: v1\n"
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := Render(raml.NewDocument("api.raml", "", &n))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	if !strings.HasPrefix(got, "#%RAML 0.8\n---\ntitle: Widgets\n") {
		t.Fatalf("missing header: %q", got)
	}
	if strings.Contains(got, ">") {
		t.Fatalf("folded marker left: %q", got)
	}
	if !strings.Contains(got, "description: |\n  Long text here\nversion: v1\n") {
		t.Fatalf("unexpected body: %q", got)
	}
}
