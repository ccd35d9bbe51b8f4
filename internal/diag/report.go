package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/mark3labs/ramlgen/internal/raml"
)

// Level is the severity of a Diagnostic.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Diagnostic is a single lint or validation finding.
type Diagnostic struct {
	Level   Level  `json:"level" yaml:"level"`
	Rule    string `json:"rule" yaml:"rule"`
	Message string `json:"message" yaml:"message"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Hint    string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Report collects the diagnostics produced for one document. It is owned by
// the caller of a single stage invocation and never shared across documents.
type Report struct {
	RunID       string
	Document    string
	Stage       string
	Diagnostics []Diagnostic
}

// NewReport returns an empty report tagged with a fresh run ID.
func NewReport(stage, document string) *Report {
	return &Report{RunID: uuid.NewString(), Stage: stage, Document: document}
}

// Add appends d.
func (r *Report) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// Count returns the number of diagnostics at level.
func (r *Report) Count(level Level) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, d := range r.Diagnostics {
		if d.Level == level {
			n++
		}
	}
	return n
}

// Success is true when the report has no error or warning diagnostics.
func (r *Report) Success() bool {
	return r.Count(LevelError)+r.Count(LevelWarning) == 0
}

// Summary renders the per-level counts.
func (r *Report) Summary() string {
	return fmt.Sprintf("Errors: %d, Warnings: %d, Info: %d",
		r.Count(LevelError), r.Count(LevelWarning), r.Count(LevelInfo))
}

// Err aggregates every error-level diagnostic into one ValidationError whose
// message holds each finding as its own block. It returns nil when there are
// none.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	var blocks []string
	for _, d := range r.Diagnostics {
		if d.Level == LevelError {
			blocks = append(blocks, d.Message)
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	return &raml.Error{
		Code:     raml.ValidationError,
		Stage:    r.Stage,
		Document: r.Document,
		Message:  strings.Join(blocks, "\n\n"),
	}
}

// Write prints every diagnostic followed by the summary line.
func (r *Report) Write(w io.Writer) error {
	for _, d := range r.Diagnostics {
		line := fmt.Sprintf("%s %s\n  %s", strings.ToUpper(string(d.Level)), d.Rule, d.Message)
		if d.Code != "" {
			line += " [" + d.Code + "]"
		}
		if d.Path != "" {
			line += "\n  at: " + d.Path
		}
		if d.Hint != "" {
			line += "\nHINT:\n" + d.Hint
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, r.Summary())
	return err
}
