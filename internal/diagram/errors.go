package diagram

import (
	"fmt"
	"strings"
)

// InvalidInputError reports a generator precondition that the inputs
// do not meet. It aborts only the one generation that raised it.
type InvalidInputError struct {
	// Kind is the generator that rejected the inputs.
	Kind Kind

	// Field names the missing or invalid input.
	Field string

	// Reason says what about the field is wrong.
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s generator: invalid input %q: %s", e.Kind, e.Field, e.Reason)
}

// ValidationError reports structural issues found in a generated
// document. It is raised before any write, so an invalid document
// never reaches disk.
type ValidationError struct {
	Kind   Kind
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.String())
	}
	return fmt.Sprintf("%s diagram failed validation: %s", e.Kind, strings.Join(msgs, "; "))
}

// WriteError reports an output write failure. The write-then-rename
// discipline guarantees no partial file remains.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write diagram %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
