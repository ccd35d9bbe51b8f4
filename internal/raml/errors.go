package raml

import "strings"

// ErrorCode categorizes pipeline errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	ParseError      ErrorCode = "ParseError"
	StructuralError ErrorCode = "StructuralError"
	ReferenceError  ErrorCode = "ReferenceError"
	ValidationError ErrorCode = "ValidationError"
)

// Error is a structured error carrying the stage, document and tree path at
// which a failure occurred.
type Error struct {
	Code     ErrorCode
	Stage    string // e.g. "normalize", "deref"
	Document string // document name (usually the source file path)
	Path     Path   // location inside the document tree
	Message  string
	Snippet  string // offending raw text, when useful for debugging
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(e.Stage)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Path) > 0 {
		b.WriteString(" at path: [")
		b.WriteString(e.Path.String())
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }
