package imagerender

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handle is a parsed document shared by previews and exports. Rasterization
// on one handle is serialized.
type Handle struct {
	mu  sync.Mutex
	doc Doc
}

// PageCount returns the number of pages, or 0 after release.
func (h *Handle) PageCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.doc == nil {
		return 0
	}
	return h.doc.NumPage()
}

// PageWidth returns the width in points of the 1-based page.
func (h *Handle) PageWidth(page int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(page); err != nil {
		return 0, err
	}
	b, err := h.doc.Bound(page - 1)
	if err != nil {
		return 0, err
	}
	return b.Dx(), nil
}

// Rasterize renders the 1-based page at dpi.
func (h *Handle) Rasterize(page int, dpi float64) (*image.RGBA, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(page); err != nil {
		return nil, err
	}
	return h.doc.ImageDPI(page-1, dpi)
}

func (h *Handle) check(page int) error {
	if h.doc == nil {
		return ErrReleased
	}
	if page < 1 || page > h.doc.NumPage() {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, page, h.doc.NumPage())
	}
	return nil
}

func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.doc == nil {
		return nil
	}
	err := h.doc.Close()
	h.doc = nil
	return err
}

// HandleCache maps document ids to parsed handles. A document is parsed at
// most once until it is released.
type HandleCache struct {
	opener Opener

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewHandleCache returns a cache using opener, or the go-fitz opener when nil.
func NewHandleCache(opener Opener) *HandleCache {
	if opener == nil {
		opener = defaultOpener
	}
	return &HandleCache{opener: opener, handles: make(map[string]*Handle)}
}

// Get returns the handle for id, parsing data on first use.
func (c *HandleCache) Get(id string, data []byte) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[id]; ok {
		return h, nil
	}
	if c.opener == nil {
		return nil, errors.New("no PDF opener configured")
	}
	doc, err := c.opener.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	h := &Handle{doc: doc}
	c.handles[id] = h
	log.Debug().Str("doc_id", id).Int("pages", doc.NumPage()).Msg("document handle opened")
	return h, nil
}

// Release closes and forgets the handle for id. Unknown ids are ignored.
func (c *HandleCache) Release(id string) {
	c.mu.Lock()
	h, ok := c.handles[id]
	delete(c.handles, id)
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := h.close(); err != nil {
		log.Warn().Err(err).Str("doc_id", id).Msg("closing document handle failed")
	}
}

// Len returns the number of open handles.
func (c *HandleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
