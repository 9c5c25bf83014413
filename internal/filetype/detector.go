package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind groups the content types the tools accept.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindOther Kind = "other"
)

// Info contains detected file type information
type Info struct {
	MIMEType    string
	Extension   string
	Kind        Kind
	Description string
}

// IsPDF reports whether the content is a PDF document.
func (i *Info) IsPDF() bool { return i.Kind == KindPDF }

// IsImage reports whether the content is an image the image-to-PDF tool takes.
func (i *Info) IsImage() bool { return i.Kind == KindImage }

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// DetectBytes detects the actual content type from magic bytes. The name is
// only used for logging and as a hint when the bytes are ambiguous.
func (d *Detector) DetectBytes(data []byte, name string) (*Info, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file %q", name)
	}
	mtype := mimetype.Detect(data)

	mimeType := mtype.String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	extension := mtype.Extension()

	log.Debug().Str("mime", mimeType).Str("ext", extension).Str("file", name).Msg("detected file type")

	// Truncated uploads sometimes lose the header window mimetype needs.
	if mimeType == "application/octet-stream" && strings.EqualFold(filepath.Ext(name), ".pdf") && strings.HasPrefix(string(data[:min(len(data), 1024)]), "%PDF-") {
		log.Debug().Str("file", name).Msg("overriding octet-stream detection based on header")
		mimeType = "application/pdf"
		extension = ".pdf"
	}

	info := &Info{
		MIMEType:  mimeType,
		Extension: extension,
	}
	d.classify(info)
	return info, nil
}

// classify determines which tool can consume the content
func (d *Detector) classify(info *Info) {
	switch info.MIMEType {
	case "application/pdf":
		info.Kind = KindPDF
		info.Description = "PDF document"
	case "image/png":
		info.Kind = KindImage
		info.Description = "PNG image"
	case "image/jpeg":
		info.Kind = KindImage
		info.Description = "JPEG image"
	case "image/webp":
		info.Kind = KindImage
		info.Description = "WebP image"
	default:
		info.Kind = KindOther
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
}
