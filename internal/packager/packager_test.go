package packager

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/pdfengine"
)

func entries(t *testing.T, d *Download) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(d.Data), int64(len(d.Data)))
	require.NoError(t, err)
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(b)
	}
	return out
}

func entryOrder(t *testing.T, d *Download) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(d.Data), int64(len(d.Data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestSplitZipNames(t *testing.T) {
	d, err := Split("scan.pdf", &pdfengine.SplitResult{Parts: []pdfengine.Part{
		{Start: 1, End: 3, Data: []byte("one")},
		{Start: 4, End: 4, Data: []byte("two")},
	}})
	require.NoError(t, err)
	assert.Equal(t, "scan_split.zip", d.Name)
	assert.Equal(t, "application/zip", d.ContentType)
	assert.Equal(t, 2, d.Files)
	assert.Equal(t, []string{"scan_1-3.pdf", "scan_4-4.pdf"}, entryOrder(t, d))
	assert.Equal(t, "two", entries(t, d)["scan_4-4.pdf"])
}

func TestSplitMerged(t *testing.T) {
	d, err := Split("Scan.PDF", &pdfengine.SplitResult{
		Parts:  []pdfengine.Part{{Start: 1, End: 2, Data: []byte("p")}},
		Merged: &pdfengine.Output{Data: []byte("merged"), Pages: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "Scan_merged.pdf", d.Name)
	assert.Equal(t, "application/pdf", d.ContentType)
	assert.Equal(t, "merged", string(d.Data))
}

func TestMergedName(t *testing.T) {
	d := Merged(&pdfengine.Output{Data: []byte("x"), Pages: 1})
	assert.Equal(t, "merged.pdf", d.Name)
	assert.Equal(t, "converted-images.pdf", ImagesToPDF(&pdfengine.Output{Data: []byte("x")}).Name)
}

func TestImagesSinglePage(t *testing.T) {
	d, err := Images([]imagerender.PageImage{{Page: 3, Data: []byte("img")}}, []string{"report.pdf"}, imagerender.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, "report.jpeg", d.Name)
	assert.Equal(t, "image/jpeg", d.ContentType)
	assert.Equal(t, "img", string(d.Data))
}

func TestImagesOneDocument(t *testing.T) {
	d, err := Images([]imagerender.PageImage{
		{Page: 2, Data: []byte("a")},
		{Page: 5, Data: []byte("b")},
	}, []string{"report.pdf"}, imagerender.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, "report.zip", d.Name)
	assert.Equal(t, []string{"page_2.png", "page_5.png"}, entryOrder(t, d))
}

func TestImagesSeveralDocuments(t *testing.T) {
	d, err := Images([]imagerender.PageImage{
		{DocIndex: 0, Page: 1, Data: []byte("a")},
		{DocIndex: 1, Page: 1, Data: []byte("b")},
		{DocIndex: 2, Page: 2, Data: []byte("c")},
	}, []string{"report.pdf", "report.pdf (1)", "report"}, imagerender.FormatWebP)
	require.NoError(t, err)
	assert.Equal(t, "converted_images.zip", d.Name)
	assert.Equal(t, []string{"report/page_1.webp", "report (1)/page_1.webp", "report (2)/page_2.webp"}, entryOrder(t, d))
}

func TestRepeatedRangesGetDistinctEntries(t *testing.T) {
	d, err := Split("r.pdf", &pdfengine.SplitResult{Parts: []pdfengine.Part{
		{Start: 1, End: 3, Data: []byte("first")},
		{Start: 1, End: 3, Data: []byte("second")},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"r_1-3.pdf", "r_1-3 (1).pdf"}, entryOrder(t, d))
	assert.Equal(t, "second", entries(t, d)["r_1-3 (1).pdf"])

	d, err = Images([]imagerender.PageImage{
		{Page: 2, Data: []byte("a")},
		{Page: 3, Data: []byte("b")},
		{Page: 2, Data: []byte("c")},
		{Page: 2, Data: []byte("d")},
	}, []string{"scan.pdf"}, imagerender.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, []string{"page_2.png", "page_3.png", "page_2 (1).png", "page_2 (2).png"}, entryOrder(t, d))
}

func TestFolderNames(t *testing.T) {
	assert.Equal(t, []string{"a", "a (1)", "a (2)", "b"}, FolderNames([]string{"a.pdf", "a.pdf", "a", "b.pdf"}))
}

func TestZipEmpty(t *testing.T) {
	_, err := Zip("x.zip", nil)
	var pe *PackagingError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestPackageSingleFileIsNotZipped(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%%EOF\n")
	d, err := Package("parts.zip", []File{{Name: "report_1-3.pdf", Data: pdf}})
	require.NoError(t, err)
	assert.Equal(t, "report_1-3.pdf", d.Name)
	assert.Equal(t, "application/pdf", d.ContentType)
	assert.Equal(t, 1, d.Files)

	d, err = Package("parts.zip", []File{{Name: "a.pdf", Data: pdf}, {Name: "b.pdf", Data: pdf}})
	require.NoError(t, err)
	assert.Equal(t, "parts.zip", d.Name)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, entryOrder(t, d))
}
