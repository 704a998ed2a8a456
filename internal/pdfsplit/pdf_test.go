package pdfsplit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copium-tutor/internal/pdfsplit/pdftest"
	"copium-tutor/internal/pkg/pdfinspect"
)

func renderSize(t *testing.T, doc *PDFDocument, pages []int) int {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, doc.WritePages(pages, &buf))
	return buf.Len()
}

// ceilingBetween returns a limit every single page fits under while the
// whole document does not.
func ceilingBetween(t *testing.T, doc *PDFDocument) int {
	t.Helper()
	all := make([]int, doc.PageCount())
	largestPage := 0
	for i := range all {
		all[i] = i + 1
		largestPage = max(largestPage, renderSize(t, doc, []int{i + 1}))
	}
	whole := renderSize(t, doc, all)
	require.Greater(t, whole, largestPage)
	return (whole + largestPage) / 2
}

func TestSplitRealPDF(t *testing.T) {
	doc, err := NewPDFDocument(pdftest.Build(12, 40))
	require.NoError(t, err)
	require.Equal(t, 12, doc.PageCount())

	maxBytes := ceilingBetween(t, doc)
	chunks, err := Split(doc, maxBytes)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	var seen []int
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.Size(), maxBytes)
		pages, err := pdfinspect.PageCount(chunk.Data)
		require.NoError(t, err)
		assert.Equal(t, len(chunk.Pages), pages)
		seen = append(seen, chunk.Pages...)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, seen)
}

func TestSplitFileRealPDF(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WriteFile(t, dir, "lecture.pdf", 9, 40)

	raw, err := os.ReadFile(src)
	require.NoError(t, err)
	doc, err := NewPDFDocument(raw)
	require.NoError(t, err)
	maxBytes := ceilingBetween(t, doc)

	outDir := filepath.Join(dir, "parts")
	paths, err := SplitFile(src, maxBytes, outDir)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(paths), 2)

	total := 0
	for i, p := range paths {
		assert.Equal(t, filepath.Join(outDir, fmt.Sprintf("lecture_part%d.pdf", i+1)), p)
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(maxBytes))

		n, err := pdfinspect.PageCountFile(p)
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, 9, total)

	Cleanup(paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestSplitFileUnderLimitKeepsOnePart(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WriteFile(t, dir, "short.pdf", 3, 5)

	paths, err := SplitFile(src, DefaultMaxBytes, filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, paths, 1)

	n, err := pdfinspect.PageCountFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
