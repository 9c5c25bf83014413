package pdfengine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/webp"

	"github.com/local/pdfdesk/internal/filetype"
)

// PageSize is the page format used by ImagesToPDF.
type PageSize string

const (
	PageA4     PageSize = "a4"
	PageLetter PageSize = "letter"
	PageFit    PageSize = "fit"
)

// Orientation applies to A4 and Letter pages.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Margin is the blank border around each image.
type Margin string

const (
	MarginNone  Margin = "none"
	MarginSmall Margin = "small"
	MarginLarge Margin = "large"
)

var marginPoints = map[Margin]int{MarginNone: 0, MarginSmall: 10, MarginLarge: 20}

// ImageOptions controls ImagesToPDF.
type ImageOptions struct {
	PageSize    PageSize
	Orientation Orientation
	Margin      Margin
}

// ParseImageOptions validates user supplied values, defaulting empty ones to
// A4 portrait with a small margin.
func ParseImageOptions(size, orientation, margin string) (ImageOptions, error) {
	opts := ImageOptions{PageSize: PageA4, Orientation: Portrait, Margin: MarginSmall}
	if size != "" {
		switch s := PageSize(strings.ToLower(size)); s {
		case PageA4, PageLetter, PageFit:
			opts.PageSize = s
		default:
			return opts, fmt.Errorf("unknown page size %q", size)
		}
	}
	if orientation != "" {
		switch o := Orientation(strings.ToLower(orientation)); o {
		case Portrait, Landscape:
			opts.Orientation = o
		default:
			return opts, fmt.Errorf("unknown orientation %q", orientation)
		}
	}
	if margin != "" {
		m := Margin(strings.ToLower(margin))
		if _, ok := marginPoints[m]; !ok {
			return opts, fmt.Errorf("unknown margin %q", margin)
		}
		opts.Margin = m
	}
	return opts, nil
}

// importDescription renders the options in pdfcpu's import syntax.
func (o ImageOptions) importDescription() string {
	if o.PageSize == PageFit {
		return "pos:full"
	}
	form := "A4"
	if o.PageSize == PageLetter {
		form = "Letter"
	}
	if o.Orientation == Landscape {
		form += "L"
	}
	scale := map[Margin]string{MarginNone: "1.0", MarginSmall: "0.95", MarginLarge: "0.9"}[o.Margin]
	if scale == "" {
		scale = "0.95"
	}
	return fmt.Sprintf("form:%s, pos:c, sc:%s", form, scale)
}

// ImageInput is one image of an image-to-PDF conversion. Rotation is in
// degrees clockwise and must be a multiple of 90.
type ImageInput struct {
	Name     string
	Data     []byte
	Rotation int
}

// ImagesToPDF places every image on its own page, in input order.
func (e *Engine) ImagesToPDF(ctx context.Context, images []ImageInput, opts ImageOptions, progress ProgressFunc) (*Output, error) {
	start := time.Now()
	out, err := e.imagesToPDF(ctx, images, opts, progress)
	observe("images_to_pdf", start, err)
	return out, err
}

func (e *Engine) imagesToPDF(ctx context.Context, images []ImageInput, opts ImageOptions, progress ProgressFunc) (*Output, error) {
	if len(images) == 0 {
		return nil, ErrNothingToAssemble
	}
	detector := filetype.New()
	readers := make([]io.Reader, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := prepareImage(detector, img, opts)
		if err != nil {
			return nil, &AssemblyError{Op: "prepare image", Source: img.Name, Err: err}
		}
		readers = append(readers, bytes.NewReader(data))
		progress.report(i+1, len(images), UnitPage)
	}

	imp, err := api.Import(opts.importDescription(), types.POINTS)
	if err != nil {
		return nil, &AssemblyError{Op: "import settings", Err: err}
	}
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, configuration()); err != nil {
		return nil, &AssemblyError{Op: "import images", Err: err}
	}
	return &Output{Data: buf.Bytes(), Pages: len(images)}, nil
}

// prepareImage returns bytes pdfcpu can embed. PNG and JPEG pass through
// untouched unless they need rotating or padding; WebP is always re-encoded
// as PNG.
func prepareImage(detector *filetype.Detector, in ImageInput, opts ImageOptions) ([]byte, error) {
	info, err := detector.DetectBytes(in.Data, in.Name)
	if err != nil {
		return nil, err
	}
	if !info.IsImage() {
		return nil, fmt.Errorf("unsupported image type %s", info.MIMEType)
	}
	rotation := ((in.Rotation % 360) + 360) % 360
	if rotation%90 != 0 {
		return nil, fmt.Errorf("rotation %d is not a multiple of 90", in.Rotation)
	}
	pad := 0
	if opts.PageSize == PageFit {
		pad = marginPoints[opts.Margin]
	}
	if info.MIMEType != "image/webp" && rotation == 0 && pad == 0 {
		return in.Data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	img = rotate(img, rotation)
	if pad > 0 {
		img = addBorder(img, pad)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// rotate turns img clockwise by a multiple of 90 degrees.
func rotate(img image.Image, degrees int) image.Image {
	switch degrees {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}

// addBorder surrounds img with pad pixels of white.
func addBorder(img image.Image, pad int) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx()+2*pad, b.Dy()+2*pad, color.White)
	return imaging.Overlay(bg, img, image.Pt(pad, pad), 1.0)
}
