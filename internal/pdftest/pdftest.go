// Package pdftest builds small, valid PDF documents for tests. Every page
// gets a distinct MediaBox width so page order can be checked after
// reassembly.
package pdftest

import (
	"bytes"
	"fmt"
)

// BaseWidth is the width in points of page 1; page k is BaseWidth+k-1 wide.
const BaseWidth = 200

// Height is the height in points of every generated page.
const Height = 300

// Generate returns an uncompressed PDF with the given number of pages and a
// correct cross-reference table.
func Generate(pages int) []byte {
	return GenerateWidths(Widths(pages, BaseWidth)...)
}

// Widths returns the page widths Generate uses for a document that starts
// at first.
func Widths(pages, first int) []int {
	out := make([]int, pages)
	for i := range out {
		out[i] = first + i
	}
	return out
}

// GenerateWidths returns a PDF with one page per width.
func GenerateWidths(widths ...int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, 2+2*len(widths))

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	var kids bytes.Buffer
	for i := range widths {
		fmt.Fprintf(&kids, "%d 0 R ", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [ %s] /Count %d >>", kids.String(), len(widths)))

	for i, w := range widths {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>", w, Height, 4+2*i))
		content := fmt.Sprintf("0 0 1 rg 10 10 %d 20 re f", 10+i)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
