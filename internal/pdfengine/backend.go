package pdfengine

// Source is a parsed input document.
type Source interface {
	PageCount() int
}

// Writer accumulates copied pages into one new document.
type Writer interface {
	// CopyPages appends the given zero-based pages of src, in order.
	CopyPages(src Source, pages []int) error
	PageCount() int
	Save() ([]byte, error)
}

// Backend is the binary PDF parser and writer.
type Backend interface {
	Load(data []byte) (Source, error)
	Create() Writer
}
