// Package pdftext extracts plain text from PDF documents.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// ErrNotPDF is returned for input that does not start with the PDF header.
var ErrNotPDF = errors.New("input is not a PDF document")

// Document is the extracted text of a PDF, one entry per page in order.
type Document struct {
	Pages []string
}

// Text joins the pages with newlines.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	return strings.Join(d.Pages, "\n")
}

// PageCount returns the number of pages read.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// CharCount returns the number of characters in Text.
func (d *Document) CharCount() int {
	return utf8.RuneCountInString(d.Text())
}

// Extract reads every page of the PDF in r.
func Extract(r io.ReaderAt, size int64) (*Document, error) {
	return ExtractContext(context.Background(), r, size)
}

// ExtractContext is Extract with cancellation checked between pages.
func ExtractContext(ctx context.Context, r io.ReaderAt, size int64) (doc *Document, err error) {
	if r == nil {
		return nil, wrap(errors.New("no input"))
	}

	header := make([]byte, len(pdfMagic))
	if _, readErr := r.ReadAt(header, 0); readErr != nil || !bytes.Equal(header, pdfMagic) {
		return nil, wrap(ErrNotPDF)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = wrap(fmt.Errorf("malformed PDF: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, wrap(err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for num := 1; num <= total; num++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, wrap(ctxErr)
		}

		page := reader.Page(num)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			return nil, wrap(fmt.Errorf("page %d: %w", num, pageErr))
		}
		pages = append(pages, text)
	}

	return &Document{Pages: pages}, nil
}

// ExtractBytes extracts text from an in-memory PDF.
func ExtractBytes(data []byte) (*Document, error) {
	return Extract(bytes.NewReader(data), int64(len(data)))
}

// ExtractFile extracts text from the PDF at path.
func ExtractFile(path string) (*Document, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return nil, wrap(err)
	}
	defer f.Close() // nolint:errcheck // read-only file

	info, err := f.Stat()
	if err != nil {
		return nil, wrap(err)
	}
	return Extract(f, info.Size())
}

func wrap(err error) error {
	return fmt.Errorf("failed to extract text from PDF: %w", err)
}
