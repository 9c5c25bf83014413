package imagerender

import "image"

// Doc abstracts a parsed PDF for rasterization. Page indices are zero-based.
type Doc interface {
	NumPage() int
	// Bound returns the page box at 72 dpi.
	Bound(i int) (image.Rectangle, error)
	ImageDPI(i int, dpi float64) (*image.RGBA, error)
	Close() error
}

// Opener abstracts parsing PDF bytes into a Doc.
type Opener interface {
	Open(data []byte) (Doc, error)
}

// defaultOpener is provided in doc_open_fitz.go using go-fitz.
var defaultOpener Opener

// setDefaultOpener allows swapping the default opener, useful for tests or alternate backends.
func setDefaultOpener(o Opener) { defaultOpener = o }

// DefaultOpener returns the opener used when none is configured.
func DefaultOpener() Opener { return defaultOpener }
