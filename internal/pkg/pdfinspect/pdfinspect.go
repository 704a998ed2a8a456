package pdfinspect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

var ErrEmpty = errors.New("empty pdf")

// PageCount opens the PDF held in b and returns its page count.
func PageCount(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, ErrEmpty
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return 0, fmt.Errorf("open pdf failed: %w", err)
	}
	return reader.NumPage(), nil
}

// PageCountFile is PageCount for a file on disk.
func PageCountFile(path string) (int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s failed: %w", path, err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// ExtractText returns the plain text of the PDF in r. A PDF without
// extractable text yields an empty string.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsPDF reports whether the file at path starts with the PDF magic bytes.
func IsPDF(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, 5)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return bytes.Equal(head[:n], []byte("%PDF-")), nil
}
