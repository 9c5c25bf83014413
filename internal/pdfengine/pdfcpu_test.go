package pdfengine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/pdftest"
)

func pageWidths(t *testing.T, data []byte) []int {
	t.Helper()
	dims, err := api.PageDims(bytes.NewReader(data), configuration())
	require.NoError(t, err)
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d.Width)
	}
	return out
}

func TestPDFCPUPageCount(t *testing.T) {
	n, err := NewPDFCPU().PageCount(pdftest.Generate(7))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = NewPDFCPU().PageCount([]byte("%PDF-1.4\nnot really"))
	assert.Error(t, err)
}

func TestPDFCPUMergeKeepsOrder(t *testing.T) {
	a := pdftest.GenerateWidths(101, 102, 103)
	b := pdftest.GenerateWidths(201, 202)
	e := New(NewPDFCPU())

	out, skipped, err := e.Merge(context.Background(), []MergeInput{
		{ID: "b", Name: "b.pdf", Data: b, Selected: []int{1, 2}},
		{ID: "a", Name: "a.pdf", Data: a, Selected: []int{1, 3}},
	}, nil)

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, 4, out.Pages)
	assert.Equal(t, []int{201, 202, 101, 103}, pageWidths(t, out.Data))
}

func TestPDFCPUSplitRoundTrip(t *testing.T) {
	src := pdftest.Generate(5)
	e := New(NewPDFCPU())

	res, err := e.Split(context.Background(), SplitInput{ID: "s", Name: "s.pdf", Data: src, PageCount: 5},
		[]document.PageRange{document.NewRange(1, 5)}, SplitOptions{}, nil)

	require.NoError(t, err)
	require.Len(t, res.Parts, 1)
	require.NotNil(t, res.Merged)
	assert.Equal(t, pdftest.Widths(5, pdftest.BaseWidth), pageWidths(t, res.Merged.Data))
}

func TestPDFCPUSplitParts(t *testing.T) {
	src := pdftest.Generate(10)
	e := New(NewPDFCPU())

	res, err := e.Split(context.Background(), SplitInput{ID: "s", Name: "s.pdf", Data: src, PageCount: 10},
		document.FixedRanges(4, 10), SplitOptions{}, nil)

	require.NoError(t, err)
	require.Len(t, res.Parts, 3)
	assert.Equal(t, []int{200, 201, 202, 203}, pageWidths(t, res.Parts[0].Data))
	assert.Equal(t, []int{204, 205, 206, 207}, pageWidths(t, res.Parts[1].Data))
	assert.Equal(t, []int{208, 209}, pageWidths(t, res.Parts[2].Data))
}

func TestPDFCPUImagesToPDF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 5, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	e := New(NewPDFCPU())
	out, err := e.ImagesToPDF(context.Background(), []ImageInput{
		{Name: "a.png", Data: buf.Bytes()},
		{Name: "b.png", Data: buf.Bytes(), Rotation: 90},
	}, ImageOptions{PageSize: PageFit, Margin: MarginNone}, nil)

	require.NoError(t, err)
	n, err := NewPDFCPU().PageCount(out.Data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPrepareImageRejectsNonImages(t *testing.T) {
	e := New(NewPDFCPU())
	_, err := e.ImagesToPDF(context.Background(), []ImageInput{{Name: "x.pdf", Data: pdftest.Generate(1)}}, ImageOptions{PageSize: PageA4}, nil)
	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "prepare image", ae.Op)
}

func TestRotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	red := color.NRGBA{R: 255, A: 255}

	r90 := rotate(src, 90)
	assert.Equal(t, image.Rect(0, 0, 2, 3), r90.Bounds())
	assert.Equal(t, red, r90.At(1, 0))

	r180 := rotate(src, 180)
	assert.Equal(t, red, r180.At(2, 1))

	r270 := rotate(src, 270)
	assert.Equal(t, red, r270.At(0, 2))

	assert.Same(t, src, rotate(src, 0))
}

func TestAddBorder(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for _, p := range []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		src.Set(p.X, p.Y, color.RGBA{B: 255, A: 255})
	}

	out := addBorder(src, 3)
	assert.Equal(t, image.Rect(0, 0, 8, 8), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.At(0, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, out.At(3, 3))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, out.At(4, 4))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.At(5, 5))
}
