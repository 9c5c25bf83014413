package pdftest

import (
	"bytes"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateXRefPointsAtObjects(t *testing.T) {
	data := Generate(3)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-1.4")))

	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	require.NotNil(t, m)
	xref, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data[xref:], []byte("xref\n0 9\n")))

	entries := regexp.MustCompile(`(\d{10}) 00000 n \n`).FindAllSubmatch(data[xref:], -1)
	require.Len(t, entries, 8)
	for i, e := range entries {
		off, err := strconv.Atoi(string(e[1]))
		require.NoError(t, err)
		want := strconv.Itoa(i+1) + " 0 obj"
		assert.True(t, bytes.HasPrefix(data[off:], []byte(want)), "object %d", i+1)
	}
}

func TestWidths(t *testing.T) {
	assert.Equal(t, []int{200, 201, 202}, Widths(3, BaseWidth))
}
