// Package packager turns assembled outputs into one downloadable file,
// zipping them when there is more than one.
package packager

import (
	"archive/zip"
	"bytes"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/pdfengine"
)

// File is one named output.
type File struct {
	Name string
	Data []byte
}

// Download is what the user receives.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
	// Files is the number of outputs inside; 1 for a plain file.
	Files int
}

// Zip writes files into an archive, in order. Entry names may contain
// folders separated by "/". A repeated name gets " (n)" before its
// extension.
func Zip(name string, files []File) (*Download, error) {
	if len(files) == 0 {
		return nil, &PackagingError{Name: name, Err: ErrNoFiles}
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()
	used := make(map[string]bool, len(files))
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: entryName(f.Name, used), Method: zip.Deflate, Modified: now})
		if err != nil {
			return nil, &PackagingError{Name: name, Err: err}
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, &PackagingError{Name: name, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, &PackagingError{Name: name, Err: err}
	}
	log.Debug().Str("archive", name).Int("entries", len(files)).Int("bytes", buf.Len()).Msg("archive built")
	return &Download{Name: name, ContentType: contentTypeZip, Data: buf.Bytes(), Files: len(files)}, nil
}

// Package delivers a single file as-is and zips several under zipName.
func Package(zipName string, files []File) (*Download, error) {
	if len(files) == 1 {
		f := files[0]
		return &Download{Name: f.Name, ContentType: mimetype.Detect(f.Data).String(), Data: f.Data, Files: 1}, nil
	}
	return Zip(zipName, files)
}

// Merged packages the result of a merge.
func Merged(out *pdfengine.Output) *Download {
	return &Download{Name: MergedName, ContentType: contentTypePDF, Data: out.Data, Files: 1}
}

// Split packages a split result: the concatenated document when there is
// one, otherwise every part in a zip.
func Split(docName string, res *pdfengine.SplitResult) (*Download, error) {
	base := document.BaseName(docName)
	if res.Merged != nil {
		return &Download{Name: SplitMergedName(base), ContentType: contentTypePDF, Data: res.Merged.Data, Files: 1}, nil
	}
	files := make([]File, len(res.Parts))
	for i, p := range res.Parts {
		files[i] = File{Name: SplitPartName(base, p.Start, p.End), Data: p.Data}
	}
	return Package(SplitZipName(base), files)
}

// Images packages exported pages. A single page from a single document is
// delivered as-is; one document gives a flat archive; several documents get
// one folder each.
func Images(pages []imagerender.PageImage, docNames []string, format imagerender.Format) (*Download, error) {
	ext := format.Extension()
	if len(pages) == 0 {
		return nil, &PackagingError{Name: ImagesZipName, Err: ErrNoFiles}
	}
	if len(docNames) == 1 && len(pages) == 1 {
		return &Download{Name: SingleImageName(docNames[0], ext), ContentType: format.ContentType(), Data: pages[0].Data, Files: 1}, nil
	}

	if len(docNames) == 1 {
		files := make([]File, len(pages))
		for i, p := range pages {
			files[i] = File{Name: PageImageName(p.Page, ext), Data: p.Data}
		}
		return Package(DocumentZipName(docNames[0]), files)
	}

	folders := FolderNames(docNames)
	files := make([]File, len(pages))
	for i, p := range pages {
		files[i] = File{Name: path.Join(folders[p.DocIndex], PageImageName(p.Page, ext)), Data: p.Data}
	}
	return Zip(ImagesZipName, files)
}

// FolderNames derives one archive folder per document from its display name
// without the .pdf extension, suffixing duplicates with " (n)".
func FolderNames(docNames []string) []string {
	used := make(map[string]bool, len(docNames))
	out := make([]string, len(docNames))
	for i, name := range docNames {
		folder := document.UniqueName(document.BaseName(name), func(s string) bool { return used[s] })
		used[folder] = true
		out[i] = folder
	}
	return out
}

// ImagesToPDF packages an image-to-PDF conversion.
func ImagesToPDF(out *pdfengine.Output) *Download {
	return &Download{Name: ImagesToPDFName, ContentType: contentTypePDF, Data: out.Data, Files: 1}
}
