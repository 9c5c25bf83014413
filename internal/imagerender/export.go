package imagerender

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/metrics"
	"github.com/local/pdfdesk/internal/pdfengine"
)

// Export defaults and limits.
const (
	DefaultDPI     = 150
	MinDPI         = 72
	MaxDPI         = 600
	DefaultQuality = 80
)

// ExportSettings controls page export.
type ExportSettings struct {
	Format   Format    `json:"format"`
	DPI      int       `json:"dpi"`
	Quality  int       `json:"quality"`
	Lossless bool      `json:"lossless"`
	Color    ColorMode `json:"color"`
}

// DefaultExportSettings returns PNG at 150 dpi, lossless, quality 80.
func DefaultExportSettings() ExportSettings {
	return ExportSettings{Format: FormatPNG, DPI: DefaultDPI, Quality: DefaultQuality, Lossless: true, Color: ColorRGB}
}

// Normalize fills zero values with defaults and clamps dpi and quality.
func (s ExportSettings) Normalize() ExportSettings {
	if s.Format == "" {
		s.Format = FormatPNG
	}
	if s.DPI == 0 {
		s.DPI = DefaultDPI
	}
	s.DPI = max(MinDPI, min(s.DPI, MaxDPI))
	if s.Quality == 0 {
		s.Quality = DefaultQuality
	}
	s.Quality = max(1, min(s.Quality, 100))
	if s.Color == "" {
		s.Color = ColorRGB
	}
	return s
}

// ExportInput is one document to export with its ranges.
type ExportInput struct {
	ID        string
	Name      string
	Data      []byte
	PageCount int
	Ranges    []document.PageRange
}

// PageImage is one exported page.
type PageImage struct {
	DocIndex int
	DocName  string
	Page     int
	Data     []byte
}

// Exporter rasterizes the pages of valid ranges, sequentially.
type Exporter struct {
	handles *HandleCache
}

func NewExporter(handles *HandleCache) *Exporter {
	return &Exporter{handles: handles}
}

// PageTotal counts the pages Export will produce. Invalid ranges count as
// zero.
func PageTotal(inputs []ExportInput) int {
	total := 0
	for _, in := range inputs {
		for _, r := range in.Ranges {
			if r.Valid(in.PageCount) {
				total += r.Len()
			}
		}
	}
	return total
}

// Export renders every page of every valid range in document order, range
// order and ascending page order. The first failing page aborts the export.
func (e *Exporter) Export(ctx context.Context, inputs []ExportInput, settings ExportSettings, progress pdfengine.ProgressFunc) ([]PageImage, error) {
	settings = settings.Normalize()
	total := PageTotal(inputs)
	if total == 0 {
		return nil, pdfengine.ErrNothingToAssemble
	}
	opts := EncodeOptions{Format: settings.Format, Quality: settings.Quality, Lossless: settings.Lossless, Color: settings.Color}

	out := make([]PageImage, 0, total)
	for di, in := range inputs {
		h, err := e.handles.Get(in.ID, in.Data)
		if err != nil {
			return nil, &PageRenderError{DocID: in.ID, Page: 0, Err: err}
		}
		for _, r := range in.Ranges {
			if !r.Valid(in.PageCount) {
				continue
			}
			for _, page := range r.Pages() {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				data, err := e.renderPage(h, page, settings.DPI, opts)
				metrics.IncRender("export", err == nil)
				if err != nil {
					return nil, &PageRenderError{DocID: in.ID, Page: page, Err: err}
				}
				out = append(out, PageImage{DocIndex: di, DocName: in.Name, Page: page, Data: data})
				if progress != nil {
					progress(pdfengine.Progress{Done: len(out), Total: total, Unit: pdfengine.UnitPage})
				}
			}
		}
	}
	log.Info().Int("documents", len(inputs)).Int("pages", len(out)).Str("format", string(settings.Format)).Int("dpi", settings.DPI).Msg("pages exported")
	return out, nil
}

func (e *Exporter) renderPage(h *Handle, page, dpi int, opts EncodeOptions) ([]byte, error) {
	img, err := h.Rasterize(page, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	return Encode(img, opts)
}
