// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Build returns a PDF with the given number of pages. Every page carries
// linesPerPage lines of distinct text, so pages differ in content and a
// larger linesPerPage makes each page heavier.
func Build(pages, linesPerPage int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, 3+2*pages)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 page tree, 3 font, then a page and its content per page.
	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i := range pages {
		content := pageContent(i+1, linesPerPage)
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
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

func pageContent(page, lines int) string {
	var b strings.Builder
	b.WriteString("BT /F1 10 Tf 40 760 Td 12 TL\n")
	seed := uint32(page) * 2654435761
	for line := range lines {
		seed = seed*1664525 + 1013904223
		fmt.Fprintf(&b, "(page %d line %d %08x %08x %08x) '\n", page, line, seed, seed^0x9e3779b9, seed>>3)
	}
	b.WriteString("ET")
	return b.String()
}

// WriteFile writes a Build result into dir and returns its path.
func WriteFile(t testing.TB, dir, name string, pages, linesPerPage int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages, linesPerPage), 0o644); err != nil {
		t.Fatalf("write pdf fixture: %v", err)
	}
	return path
}
