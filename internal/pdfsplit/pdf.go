package pdfsplit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"copium-tutor/internal/pkg/pdfinspect"
)

func init() {
	// pdfcpu otherwise writes a config directory under the user's home.
	api.DisableConfigDir()
}

// PDFDocument is a PDF held in memory. Page subsets are written with pdfcpu.
type PDFDocument struct {
	src   []byte
	pages int
	conf  *model.Configuration
}

func NewPDFDocument(src []byte) (*PDFDocument, error) {
	pages, err := pdfinspect.PageCount(src)
	if err != nil {
		return nil, err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFDocument{src: src, pages: pages, conf: conf}, nil
}

func (d *PDFDocument) PageCount() int { return d.pages }

func (d *PDFDocument) WritePages(pages []int, w io.Writer) error {
	if err := api.Trim(bytes.NewReader(d.src), w, pageSelection(pages), d.conf); err != nil {
		return fmt.Errorf("pdfcpu trim failed: %w", err)
	}
	return nil
}

// pageSelection folds ascending page numbers into pdfcpu selection ranges.
func pageSelection(pages []int) []string {
	var out []string
	for i := 0; i < len(pages); {
		j := i
		for j+1 < len(pages) && pages[j+1] == pages[j]+1 {
			j++
		}
		if i == j {
			out = append(out, strconv.Itoa(pages[i]))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", pages[i], pages[j]))
		}
		i = j + 1
	}
	return out
}

// SplitFile splits the PDF at path into parts of at most maxBytes and writes
// them to outDir, or to a fresh temporary directory when outDir is empty.
// Parts are returned in page order. On error no part files are left behind.
func SplitFile(path string, maxBytes int, outDir string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s failed: %w", path, err)
	}
	doc, err := NewPDFDocument(src)
	if err != nil {
		return nil, err
	}
	chunks, err := Split(doc, maxBytes)
	if err != nil {
		return nil, err
	}

	if outDir == "" {
		outDir, err = os.MkdirTemp("", "pdfsplit-*")
		if err != nil {
			return nil, fmt.Errorf("create split dir failed: %w", err)
		}
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create split dir failed: %w", err)
	}

	return writeChunks(chunks, outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func writeChunks(chunks []Chunk, outDir, stem string) ([]string, error) {
	paths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		p := filepath.Join(outDir, fmt.Sprintf("%s_part%d.pdf", stem, i+1))
		if err := os.WriteFile(p, chunk.Data, 0o644); err != nil {
			Cleanup(paths)
			return nil, fmt.Errorf("write split part failed: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Cleanup removes split parts, ignoring files that are already gone.
func Cleanup(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
