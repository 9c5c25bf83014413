package imagerender

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/webp"
)

// Format is an output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// ParseFormat accepts png, jpeg (or jpg) and webp in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// Extension is the file extension without the dot.
func (f Format) Extension() string { return string(f) }

// ContentType is the MIME type of the encoding.
func (f Format) ContentType() string { return "image/" + string(f) }

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// EncodeOptions controls Encode.
type EncodeOptions struct {
	Format Format
	// Quality is 1..100 and applies to JPEG, WebP and lossy PNG.
	Quality int
	// Lossless keeps PNG and WebP output exact. Lossy PNG is reduced to a
	// 256 color palette.
	Lossless bool
	Color    ColorMode
}

// Encode converts img to the requested format.
func Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	quality := opts.Quality
	if quality < 1 || quality > 100 {
		quality = 80
	}
	if opts.Color == ColorGray {
		img = toGray(img)
	}

	var buf bytes.Buffer
	switch opts.Format {
	case FormatPNG:
		if !opts.Lossless {
			img = toPaletted(img)
		}
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	case FormatWebP:
		if err := webp.Encode(&buf, img, webp.Options{Quality: quality, Lossless: opts.Lossless, Method: 4}); err != nil {
			return nil, fmt.Errorf("failed to encode WebP: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", opts.Format)
	}
	return buf.Bytes(), nil
}

func toGray(img image.Image) image.Image {
	bounds := img.Bounds()
	grayImg := image.NewGray(bounds)
	draw.Draw(grayImg, bounds, img, bounds.Min, draw.Src)
	return grayImg
}

func toPaletted(img image.Image) image.Image {
	if _, ok := img.(*image.Gray); ok {
		return img
	}
	bounds := img.Bounds()
	p := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(p, bounds, img, bounds.Min)
	return p
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if _, ok := img.(*image.Gray); ok {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}
