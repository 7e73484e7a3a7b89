package error

import (
	"fmt"
	"strings"
)

// SpecError decorates a grammar error with the source it came from so
// the CLI can report `<file>: error: <cause>`.
type SpecError struct {
	Cause      error
	SourceName string
}

func (e *SpecError) Error() string {
	var b strings.Builder
	if e.SourceName != "" {
		fmt.Fprintf(&b, "%v: ", e.SourceName)
	}
	fmt.Fprintf(&b, "error: %v", e.Cause)
	return b.String()
}

func (e *SpecError) Unwrap() error {
	return e.Cause
}
