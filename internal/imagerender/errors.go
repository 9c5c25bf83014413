package imagerender

import (
	"errors"
	"fmt"
)

var (
	// ErrPageRange is returned for page numbers outside the document.
	ErrPageRange = errors.New("page out of range")
	// ErrReleased is returned when a handle is used after Release.
	ErrReleased = errors.New("document handle released")
)

// PageRenderError reports a page that could not be rasterized or encoded.
type PageRenderError struct {
	DocID string
	Page  int
	Err   error
}

func (e *PageRenderError) Error() string {
	return fmt.Sprintf("render page %d of %s: %v", e.Page, e.DocID, e.Err)
}

func (e *PageRenderError) Unwrap() error { return e.Err }
