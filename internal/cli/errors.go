package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/ramlgen/internal/raml"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// runError carries a friendly rendering of a pipeline failure while keeping
// the original chain for errors.Is/As.
type runError struct {
	msg string
	err error
}

func (e *runError) Error() string { return e.msg }
func (e *runError) Unwrap() error { return e.err }

// friendlyError maps structured raml errors into messages with Location and
// Path lines. Joined errors are rendered one block each.
func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	blocks := make([]string, 0, 1)
	for _, e := range flatten(err) {
		blocks = append(blocks, describe(e))
	}
	return &runError{msg: strings.Join(blocks, "\n\n"), err: err}
}

func flatten(err error) []error {
	multi, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range multi.Unwrap() {
		out = append(out, flatten(e)...)
	}
	return out
}

func describe(err error) string {
	var re *raml.Error
	if !errors.As(err, &re) {
		return err.Error()
	}
	msg := re.Message
	if re.Stage != "" {
		msg = fmt.Sprintf("%s: %s", re.Stage, msg)
	}
	if re.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, re.Cause)
	}
	if re.Document != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, re.Document)
	}
	if len(re.Path) > 0 {
		msg = fmt.Sprintf("%s\nPath: %s", msg, re.Path.String())
	}
	if re.Snippet != "" {
		msg = fmt.Sprintf("%s\nSnippet:\n%s", msg, re.Snippet)
	}
	return msg
}
