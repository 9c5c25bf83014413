package packager

import (
	"fmt"
	"path"
	"strings"

	"github.com/local/pdfdesk/internal/document"
)

// Fixed download names.
const (
	MergedName      = "merged.pdf"
	ImagesZipName   = "converted_images.zip"
	ImagesToPDFName = "converted-images.pdf"
	contentTypePDF  = "application/pdf"
	contentTypeZip  = "application/zip"
)

// SplitPartName names the output of range start-end of base.
func SplitPartName(base string, start, end int) string {
	return fmt.Sprintf("%s_%d-%d.pdf", base, start, end)
}

// SplitZipName names the archive holding every split part.
func SplitZipName(base string) string { return base + "_split.zip" }

// SplitMergedName names the concatenation of every split part.
func SplitMergedName(base string) string { return base + "_merged.pdf" }

// PageImageName names one exported page inside an archive.
func PageImageName(page int, ext string) string {
	return fmt.Sprintf("page_%d.%s", page, ext)
}

// SingleImageName names a lone exported page.
func SingleImageName(docName, ext string) string {
	return document.BaseName(docName) + "." + ext
}

// DocumentZipName names the archive of one document's exported pages.
func DocumentZipName(docName string) string {
	return document.BaseName(docName) + ".zip"
}

// entryName returns name, or name with " (n)" inserted before the extension
// when used already holds it, and records the result in used.
func entryName(name string, used map[string]bool) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stem = document.UniqueName(stem, func(s string) bool { return used[s+ext] })
	used[stem+ext] = true
	return stem + ext
}
