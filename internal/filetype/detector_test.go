package filetype

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBytes(t *testing.T) {
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	tests := []struct {
		name string
		data []byte
		kind Kind
		mime string
	}{
		{"doc.pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"), KindPDF, "application/pdf"},
		{"pic.png", pngBuf.Bytes(), KindImage, "image/png"},
		{"notes.pdf", []byte("just some text pretending"), KindOther, "text/plain"},
	}
	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := d.DetectBytes(tt.data, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, info.Kind)
			assert.Equal(t, tt.mime, info.MIMEType)
		})
	}
}

func TestDetectBytesEmpty(t *testing.T) {
	_, err := New().DetectBytes(nil, "empty.pdf")
	assert.Error(t, err)
}
