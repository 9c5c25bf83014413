package pdfengine

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU implements Backend on top of github.com/pdfcpu/pdfcpu.
type PDFCPU struct{}

// NewPDFCPU returns the pdfcpu backend.
func NewPDFCPU() *PDFCPU { return &PDFCPU{} }

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount reads the page count without keeping the parsed document.
func (*PDFCPU) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), configuration())
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

func (*PDFCPU) Load(data []byte) (Source, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), configuration())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("read page tree: %w", err)
	}
	return &pdfcpuSource{ctx: ctx}, nil
}

func (*PDFCPU) Create() Writer { return &pdfcpuWriter{} }

type pdfcpuSource struct {
	ctx *model.Context
}

func (s *pdfcpuSource) PageCount() int { return s.ctx.PageCount }

// pdfcpuWriter keeps each copied run of pages as its own serialized segment
// and concatenates the segments on Save.
type pdfcpuWriter struct {
	segments [][]byte
	pages    int
}

func (w *pdfcpuWriter) CopyPages(src Source, pages []int) error {
	s, ok := src.(*pdfcpuSource)
	if !ok {
		return errors.New("source was not loaded by the pdfcpu backend")
	}
	if len(pages) == 0 {
		return nil
	}
	pageNrs := make([]int, len(pages))
	for i, p := range pages {
		if p < 0 || p >= s.ctx.PageCount {
			return fmt.Errorf("page index %d out of range [0,%d)", p, s.ctx.PageCount)
		}
		pageNrs[i] = p + 1
	}

	extracted, err := pdfcpu.ExtractPages(s.ctx, pageNrs, false)
	if err != nil {
		return fmt.Errorf("extract pages: %w", err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(extracted, &buf); err != nil {
		return fmt.Errorf("write pages: %w", err)
	}
	w.segments = append(w.segments, buf.Bytes())
	w.pages += len(pages)
	return nil
}

func (w *pdfcpuWriter) PageCount() int { return w.pages }

func (w *pdfcpuWriter) Save() ([]byte, error) {
	switch len(w.segments) {
	case 0:
		return nil, ErrEmptyOutput
	case 1:
		return w.segments[0], nil
	}
	readers := make([]io.ReadSeeker, len(w.segments))
	for i, seg := range w.segments {
		readers[i] = bytes.NewReader(seg)
	}
	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, configuration()); err != nil {
		return nil, fmt.Errorf("merge segments: %w", err)
	}
	return out.Bytes(), nil
}
