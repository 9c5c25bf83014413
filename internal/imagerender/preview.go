package imagerender

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/metrics"
)

// DefaultPreviewWidth is the display width of a preview in pixels.
const DefaultPreviewWidth = 200

// Preview is a rendered thumbnail. A placeholder has no image data and
// stands in for a page that failed to render.
type Preview struct {
	Data        []byte `json:"-"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
	Placeholder bool   `json:"placeholder"`
}

type previewKey struct {
	docID string
	page  int
}

// Previewer renders fixed-width JPEG thumbnails and caches them per
// (document, page).
type Previewer struct {
	handles *HandleCache
	width   int

	mu    sync.Mutex
	cache map[previewKey]*Preview
	// inflight counts renders per document; stale marks documents
	// invalidated while one of them ran.
	inflight map[string]int
	stale    map[string]bool
}

func NewPreviewer(handles *HandleCache, width int) *Previewer {
	if width <= 0 {
		width = DefaultPreviewWidth
	}
	return &Previewer{
		handles:  handles,
		width:    width,
		cache:    make(map[previewKey]*Preview),
		inflight: make(map[string]int),
		stale:    make(map[string]bool),
	}
}

// Render returns the thumbnail of a 1-based page. On failure it returns a
// placeholder together with a *PageRenderError.
func (p *Previewer) Render(ctx context.Context, docID string, data []byte, page int) (*Preview, error) {
	key := previewKey{docID: docID, page: page}
	p.mu.Lock()
	if cached, ok := p.cache[key]; ok {
		p.mu.Unlock()
		metrics.IncRenderCacheHit()
		return cached, nil
	}
	p.inflight[docID]++
	p.mu.Unlock()

	prev, err := p.render(ctx, docID, data, page)
	metrics.IncRender("preview", err == nil)

	p.mu.Lock()
	stale := p.stale[docID]
	if err == nil && !stale {
		p.cache[key] = prev
	}
	if p.inflight[docID]--; p.inflight[docID] == 0 {
		delete(p.inflight, docID)
		delete(p.stale, docID)
	}
	p.mu.Unlock()

	if stale {
		// The document went away mid-render; drop the handle it may have reopened.
		p.handles.Release(docID)
	}
	if err != nil {
		log.Warn().Err(err).Str("doc_id", docID).Int("page", page).Msg("preview render failed")
		return &Preview{Width: p.width, ContentType: FormatJPEG.ContentType(), Placeholder: true}, &PageRenderError{DocID: docID, Page: page, Err: err}
	}
	return prev, nil
}

func (p *Previewer) render(ctx context.Context, docID string, data []byte, page int) (*Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := p.handles.Get(docID, data)
	if err != nil {
		return nil, err
	}
	nativeWidth, err := h.PageWidth(page)
	if err != nil {
		return nil, err
	}
	dpi := 72.0
	if nativeWidth > 0 {
		dpi = 72.0 * float64(p.width) / float64(nativeWidth)
	}
	img, err := h.Rasterize(page, dpi)
	if err != nil {
		return nil, err
	}
	out, err := Encode(img, EncodeOptions{Format: FormatJPEG, Quality: 80})
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Preview{Data: out, Width: b.Dx(), Height: b.Dy(), ContentType: FormatJPEG.ContentType()}, nil
}

// Invalidate drops every cached thumbnail of a document. Renders of the
// document still running are not cached when they finish.
func (p *Previewer) Invalidate(docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[docID] > 0 {
		p.stale[docID] = true
	}
	for k := range p.cache {
		if k.docID == docID {
			delete(p.cache, k)
		}
	}
}

// Cached reports how many thumbnails are held.
func (p *Previewer) Cached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}
