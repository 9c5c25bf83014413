package imagerender

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/pdfengine"
)

// fakeDoc has pages 100pt wide and 150pt tall; page failPage (1-based)
// cannot be rasterized.
type fakeDoc struct {
	pages    int
	failPage int
	closed   *atomic.Int32
}

func (d *fakeDoc) NumPage() int { return d.pages }

func (d *fakeDoc) Bound(i int) (image.Rectangle, error) {
	return image.Rect(0, 0, 100, 150), nil
}

func (d *fakeDoc) ImageDPI(i int, dpi float64) (*image.RGBA, error) {
	if i+1 == d.failPage {
		return nil, errors.New("broken content stream")
	}
	scale := dpi / 72
	img := image.NewRGBA(image.Rect(0, 0, int(100*scale), int(150*scale)))
	for x := 0; x < img.Bounds().Dx(); x++ {
		img.Set(x, 0, color.RGBA{B: 255, A: 255})
	}
	return img, nil
}

func (d *fakeDoc) Close() error {
	d.closed.Add(1)
	return nil
}

type fakeOpener struct {
	opens    atomic.Int32
	closed   atomic.Int32
	pages    int
	failPage int
}

func (o *fakeOpener) Open(data []byte) (Doc, error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	o.opens.Add(1)
	return &fakeDoc{pages: o.pages, failPage: o.failPage, closed: &o.closed}, nil
}

func TestHandleCacheOpensOnce(t *testing.T) {
	o := &fakeOpener{pages: 3}
	c := NewHandleCache(o)

	h1, err := c.Get("d1", []byte("pdf"))
	require.NoError(t, err)
	h2, err := c.Get("d1", []byte("pdf"))
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, int32(1), o.opens.Load())
	assert.Equal(t, 3, h1.PageCount())

	c.Release("d1")
	assert.Equal(t, int32(1), o.closed.Load())
	assert.Zero(t, c.Len())
	_, err = h1.Rasterize(1, 72)
	assert.ErrorIs(t, err, ErrReleased)

	c.Release("d1")
	assert.Equal(t, int32(1), o.closed.Load())
}

func TestHandleCacheOpenFailure(t *testing.T) {
	c := NewHandleCache(&fakeOpener{pages: 1})
	_, err := c.Get("d1", nil)
	assert.Error(t, err)
	assert.Zero(t, c.Len())
}

func TestPreviewFixedWidthAndCache(t *testing.T) {
	o := &fakeOpener{pages: 2}
	p := NewPreviewer(NewHandleCache(o), 200)

	prev, err := p.Render(context.Background(), "d1", []byte("pdf"), 2)
	require.NoError(t, err)
	assert.False(t, prev.Placeholder)
	assert.Equal(t, 200, prev.Width)
	assert.Equal(t, 300, prev.Height)
	assert.Equal(t, "image/jpeg", prev.ContentType)
	_, err = jpeg.Decode(bytes.NewReader(prev.Data))
	require.NoError(t, err)

	again, err := p.Render(context.Background(), "d1", []byte("pdf"), 2)
	require.NoError(t, err)
	assert.Same(t, prev, again)
	assert.Equal(t, 1, p.Cached())

	p.Invalidate("d1")
	assert.Zero(t, p.Cached())
}

// gatedOpener holds Open until release is closed.
type gatedOpener struct {
	fakeOpener
	started chan struct{}
	release chan struct{}
}

func (o *gatedOpener) Open(data []byte) (Doc, error) {
	select {
	case o.started <- struct{}{}:
	default:
	}
	<-o.release
	return o.fakeOpener.Open(data)
}

func TestPreviewInvalidatedMidRenderIsNotCached(t *testing.T) {
	o := &gatedOpener{fakeOpener: fakeOpener{pages: 2}, started: make(chan struct{}, 1), release: make(chan struct{})}
	handles := NewHandleCache(o)
	p := NewPreviewer(handles, 200)

	done := make(chan error, 1)
	go func() {
		_, err := p.Render(context.Background(), "d1", []byte("pdf"), 1)
		done <- err
	}()
	<-o.started
	p.Invalidate("d1")
	close(o.release)
	require.NoError(t, <-done)

	assert.Zero(t, p.Cached())
	assert.Zero(t, handles.Len())
	assert.Equal(t, int32(1), o.closed.Load())

	_, err := p.Render(context.Background(), "d1", []byte("pdf"), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Cached())
}

func TestPreviewFailureGivesPlaceholder(t *testing.T) {
	p := NewPreviewer(NewHandleCache(&fakeOpener{pages: 3, failPage: 2}), 0)

	prev, err := p.Render(context.Background(), "d1", []byte("pdf"), 2)
	var re *PageRenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 2, re.Page)
	assert.True(t, prev.Placeholder)
	assert.Equal(t, DefaultPreviewWidth, prev.Width)
	assert.Zero(t, p.Cached(), "failures are not cached")

	_, err = p.Render(context.Background(), "d1", []byte("pdf"), 9)
	assert.ErrorIs(t, err, ErrPageRange)
}

func TestExportOrderAndProgress(t *testing.T) {
	o := &fakeOpener{pages: 5}
	e := NewExporter(NewHandleCache(o))
	var progress []pdfengine.Progress

	images, err := e.Export(context.Background(), []ExportInput{
		{ID: "a", Name: "a.pdf", Data: []byte("pdf"), PageCount: 5, Ranges: []document.PageRange{document.NewRange(4, 5), document.NewRange(9, 9), document.NewRange(1, 1)}},
		{ID: "b", Name: "b.pdf", Data: []byte("pdf"), PageCount: 5, Ranges: []document.PageRange{document.NewRange(2, 2)}},
	}, ExportSettings{Format: FormatPNG, DPI: 72}, func(p pdfengine.Progress) { progress = append(progress, p) })

	require.NoError(t, err)
	require.Len(t, images, 4)
	got := make([][2]int, len(images))
	for i, img := range images {
		got[i] = [2]int{img.DocIndex, img.Page}
	}
	assert.Equal(t, [][2]int{{0, 4}, {0, 5}, {0, 1}, {1, 2}}, got)
	require.Len(t, progress, 4)
	assert.Equal(t, pdfengine.Progress{Done: 4, Total: 4, Unit: pdfengine.UnitPage}, progress[3])

	decoded, err := png.Decode(bytes.NewReader(images[0].Data))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
}

func TestExportFailsOnBrokenPage(t *testing.T) {
	e := NewExporter(NewHandleCache(&fakeOpener{pages: 3, failPage: 3}))
	_, err := e.Export(context.Background(), []ExportInput{
		{ID: "a", Name: "a.pdf", Data: []byte("pdf"), PageCount: 3, Ranges: []document.PageRange{document.NewRange(1, 3)}},
	}, DefaultExportSettings(), nil)

	var re *PageRenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 3, re.Page)
}

func TestExportNothingValid(t *testing.T) {
	e := NewExporter(NewHandleCache(&fakeOpener{pages: 3}))
	_, err := e.Export(context.Background(), []ExportInput{
		{ID: "a", Data: []byte("pdf"), PageCount: 3, Ranges: []document.PageRange{document.NewRange(3, 1)}},
	}, DefaultExportSettings(), nil)
	assert.ErrorIs(t, err, pdfengine.ErrNothingToAssemble)
}

func TestExportSettingsNormalize(t *testing.T) {
	s := ExportSettings{DPI: 2000, Quality: 300}.Normalize()
	assert.Equal(t, FormatPNG, s.Format)
	assert.Equal(t, MaxDPI, s.DPI)
	assert.Equal(t, 100, s.Quality)
	assert.Equal(t, ColorRGB, s.Color)

	s = ExportSettings{DPI: 10}.Normalize()
	assert.Equal(t, MinDPI, s.DPI)
	assert.Equal(t, DefaultQuality, s.Quality)
}

func TestEncodeFormats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	for _, f := range []Format{FormatPNG, FormatJPEG} {
		data, err := Encode(img, EncodeOptions{Format: f, Quality: 80, Color: ColorGray})
		require.NoError(t, err, f)
		decoded, _, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err, f)
		assert.Equal(t, img.Bounds(), decoded.Bounds(), f)
	}

	lossy, err := Encode(img, EncodeOptions{Format: FormatPNG})
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(lossy))
	require.NoError(t, err)
	_, paletted := decoded.(*image.Paletted)
	assert.True(t, paletted)

	_, err = Encode(img, EncodeOptions{Format: "bmp"})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JPG")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, f)
	assert.Equal(t, "jpeg", f.Extension())
	_, err = ParseFormat("gif")
	assert.Error(t, err)
}
