// Package fixer serializes a RAML tree back to RAML 0.8 text that the strict
// RAML parser accepts.
package fixer

import (
	"regexp"
	"strings"

	"github.com/mark3labs/ramlgen/internal/raml"
)

// Header opens every emitted document.
const Header = raml.Header + "\n---\n"

// foldedIntroducer matches a mapping value that starts a folded block scalar.
var foldedIntroducer = regexp.MustCompile(`: *>(-|\++)?$`)

// Render emits doc as RAML text with folded scalars rewritten to literal ones.
func Render(doc *raml.Document) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, &raml.Error{Code: raml.InputError, Stage: "fix", Message: "document is empty"}
	}
	body, err := raml.EncodeYAML(doc.Root)
	if err != nil {
		return nil, &raml.Error{Code: raml.InputError, Stage: "fix", Document: doc.Name, Message: "serialize document", Cause: err}
	}
	out := FixFoldedScalars(Header + string(body))
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return []byte(out), nil
}

// FixFoldedScalars rewrites every "key: >" block into "key: |" and joins the
// folded lines of each paragraph into a single line. A line indented at least
// two columns less than the first line of the block ends it. Blank lines
// inside the block separate paragraphs and are dropped.
func FixFoldedScalars(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var (
		inFold        bool
		sectionIndent = -1
		pending       string
	)
	for _, line := range lines {
		if inFold {
			indent := len(line) - len(strings.TrimLeft(line, " "))
			switch {
			case sectionIndent < 0:
				sectionIndent = indent
				pending = line
				continue
			case line == "":
				if pending != "" {
					out = append(out, pending)
				}
				pending = ""
				continue
			case sectionIndent-indent >= 2:
				out = append(out, pending)
				pending = ""
				sectionIndent = -1
				inFold = false
			default:
				if pending != "" {
					pending += " " + strings.TrimLeft(line, " ")
				} else {
					pending = line
				}
				continue
			}
		}
		if foldedIntroducer.MatchString(line) {
			line = foldedIntroducer.ReplaceAllString(line, ": |")
			inFold = true
		}
		out = append(out, line)
	}
	if inFold && pending != "" {
		out = append(out, pending)
	}
	return strings.Join(out, "\n")
}
