package document

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/filetype"
)

// PageCounter parses a PDF just far enough to report its page count.
type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// Upload is one file handed to the loader.
type Upload struct {
	Name string
	Data []byte
}

// LoadFailure records an upload that was rejected.
type LoadFailure struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// LoadResult is the outcome of one batch. Replaced holds documents evicted by
// a single-document collection; callers release their resources.
type LoadResult struct {
	Loaded   []*Document
	Failed   []LoadFailure
	Replaced []*Document
}

// Collection is the ordered set of documents in one workspace. It is not
// safe for concurrent use; the owning workspace serializes access.
type Collection struct {
	counter  PageCounter
	detector *filetype.Detector
	limit    int
	docs     []*Document
}

// NewCollection returns an empty collection. A limit of 1 turns every load
// into a replacement of the current document; 0 means unlimited.
func NewCollection(counter PageCounter, detector *filetype.Detector, limit int) *Collection {
	if detector == nil {
		detector = filetype.New()
	}
	return &Collection{counter: counter, detector: detector, limit: limit}
}

// Load parses every upload independently. A failing upload is reported and
// never aborts the rest of the batch. A single-document collection keeps the
// first upload that parses and reports the others.
func (c *Collection) Load(ctx context.Context, uploads []Upload) LoadResult {
	var res LoadResult
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, LoadFailure{Name: up.Name, Err: &ParseError{Name: up.Name, Err: err}})
			continue
		}
		if c.limit == 1 && len(res.Loaded) == 1 {
			res.Failed = append(res.Failed, LoadFailure{Name: up.Name, Err: &ParseError{Name: up.Name, Err: ErrSingleDocument}})
			continue
		}
		doc, err := c.parse(up)
		if err != nil {
			log.Warn().Err(err).Str("file", up.Name).Msg("document rejected")
			res.Failed = append(res.Failed, LoadFailure{Name: up.Name, Err: err})
			continue
		}
		if c.limit == 1 && len(c.docs) > 0 {
			res.Replaced = append(res.Replaced, c.docs...)
			c.docs = nil
		}
		doc.Name = UniqueName(up.Name, c.hasName)
		c.docs = append(c.docs, doc)
		res.Loaded = append(res.Loaded, doc)
		log.Info().Str("doc_id", doc.ID).Str("name", doc.Name).Int("pages", doc.PageCount).Int64("bytes", doc.Size).Msg("document loaded")
	}
	return res
}

func (c *Collection) parse(up Upload) (*Document, error) {
	info, err := c.detector.DetectBytes(up.Data, up.Name)
	if err != nil {
		return nil, &ParseError{Name: up.Name, Err: err}
	}
	if !info.IsPDF() {
		return nil, &ParseError{Name: up.Name, Err: ErrNotPDF}
	}
	n, err := c.counter.PageCount(up.Data)
	if err != nil {
		return nil, &ParseError{Name: up.Name, Err: err}
	}
	if n < 1 {
		return nil, &ParseError{Name: up.Name, Err: ErrEmptyPDF}
	}
	return New(uuid.NewString(), up.Name, up.Data, n), nil
}

func (c *Collection) hasName(name string) bool {
	for _, d := range c.docs {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (c *Collection) index(id string) int {
	for i, d := range c.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Get looks a document up by id.
func (c *Collection) Get(id string) (*Document, error) {
	if i := c.index(id); i >= 0 {
		return c.docs[i], nil
	}
	return nil, ErrNotFound
}

// List returns the documents in display order.
func (c *Collection) List() []*Document {
	out := make([]*Document, len(c.docs))
	copy(out, c.docs)
	return out
}

func (c *Collection) Len() int { return len(c.docs) }

// Names returns the display names in order.
func (c *Collection) Names() []string {
	out := make([]string, len(c.docs))
	for i, d := range c.docs {
		out[i] = d.Name
	}
	return out
}

// Remove drops one document and returns it so the caller can release
// anything derived from it.
func (c *Collection) Remove(id string) (*Document, error) {
	i := c.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	doc := c.docs[i]
	c.docs = append(c.docs[:i:i], c.docs[i+1:]...)
	return doc, nil
}

// Clear empties the collection and returns what was in it.
func (c *Collection) Clear() []*Document {
	out := c.docs
	c.docs = nil
	return out
}

// Move relocates one document to index to, shifting the others. Out of range
// targets are clamped to the ends of the list.
func (c *Collection) Move(id string, to int) error {
	from := c.index(id)
	if from < 0 {
		return ErrNotFound
	}
	to = max(0, min(to, len(c.docs)-1))
	if from == to {
		return nil
	}
	doc := c.docs[from]
	rest := append(c.docs[:from:from], c.docs[from+1:]...)
	c.docs = append(rest[:to:to], append([]*Document{doc}, rest[to:]...)...)
	return nil
}

// IsLoadFailure reports whether err came from a rejected upload.
func IsLoadFailure(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
