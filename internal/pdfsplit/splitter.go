// Package pdfsplit cuts a paginated document into ordered parts whose
// serialized size stays under a byte ceiling.
package pdfsplit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxBytes is the per-upload ceiling of the memory service.
const DefaultMaxBytes = 10 << 20

var ErrNoPages = errors.New("document has no pages")

// Document is a source that can serialize any ordered subset of its pages as
// a standalone document. Pages are numbered from 1.
type Document interface {
	PageCount() int
	WritePages(pages []int, w io.Writer) error
}

// Chunk is one emitted part. Data is the serialized sub-document.
type Chunk struct {
	Pages []int
	Data  []byte
}

func (c Chunk) Size() int { return len(c.Data) }

// Split grows a chunk one page at a time and measures the real serialized
// size after every append. A chunk that overflows is emitted without its last
// page, and that page seeds the next chunk. A single page that alone exceeds
// maxBytes is emitted as its own oversized chunk.
func Split(doc Document, maxBytes int) ([]Chunk, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be positive, got %d", maxBytes)
	}
	total := doc.PageCount()
	if total <= 0 {
		return nil, ErrNoPages
	}

	var (
		chunks  []Chunk
		current []int
		last    []byte
	)
	for page := 1; page <= total; page++ {
		candidate := append(append([]int(nil), current...), page)
		data, err := render(doc, candidate)
		if err != nil {
			return nil, err
		}

		if len(data) <= maxBytes {
			current, last = candidate, data
			continue
		}

		if len(candidate) == 1 {
			chunks = append(chunks, Chunk{Pages: candidate, Data: data})
			current, last = nil, nil
			continue
		}

		chunks = append(chunks, Chunk{Pages: current, Data: last})

		// Re-measure the overflowing page on its own.
		current = []int{page}
		last, err = render(doc, current)
		if err != nil {
			return nil, err
		}
		if len(last) > maxBytes {
			chunks = append(chunks, Chunk{Pages: current, Data: last})
			current, last = nil, nil
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, Chunk{Pages: current, Data: last})
	}
	return chunks, nil
}

func render(doc Document, pages []int) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.WritePages(pages, &buf); err != nil {
		return nil, fmt.Errorf("serialize pages %d-%d failed: %w", pages[0], pages[len(pages)-1], err)
	}
	return buf.Bytes(), nil
}
