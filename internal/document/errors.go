package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document id is not part of the collection.
	ErrNotFound = errors.New("document not found")
	// ErrRangeIndex is returned for range operations on a missing index.
	ErrRangeIndex = errors.New("range index out of bounds")
	// ErrRangeField is returned when a range update names neither start nor end.
	ErrRangeField = errors.New("range field must be start or end")
	// ErrNotPDF marks uploads whose content is not a PDF.
	ErrNotPDF = errors.New("content is not a PDF document")
	// ErrEmptyPDF marks PDFs that parse but contain no pages.
	ErrEmptyPDF = errors.New("document has no pages")
	// ErrSingleDocument marks uploads beyond the one a split workspace holds.
	ErrSingleDocument = errors.New("only one document can be loaded at a time")
)

// ParseError reports an upload that could not be loaded. It never aborts the
// rest of a batch.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StateError reports a lifecycle transition that is not allowed.
type StateError struct {
	From State
	To   State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid document state transition %s -> %s", e.From, e.To)
}
