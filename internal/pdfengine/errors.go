package pdfengine

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToAssemble is returned when every work item was skipped.
	ErrNothingToAssemble = errors.New("no pages to assemble")
	// ErrEmptyOutput is returned when a writer is saved before any page was copied.
	ErrEmptyOutput = errors.New("output has no pages")
)

// AssemblyError reports a failure while copying pages or serializing an
// output. Outputs produced before the failure are discarded.
type AssemblyError struct {
	Op     string
	Source string
	Err    error
}

func (e *AssemblyError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
