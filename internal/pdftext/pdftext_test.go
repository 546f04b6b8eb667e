package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	fontObj := 3 + 2*len(pages)
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+2*i))
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontObj, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestExtractPagesInOrder(t *testing.T) {
	data := buildPDF(t, "Population adults", "Outcome mortality")

	doc, err := ExtractBytes(data)
	require.NoError(t, err)
	require.Equal(t, 2, doc.PageCount())
	assert.Contains(t, doc.Pages[0], "Population adults")
	assert.Contains(t, doc.Pages[1], "Outcome mortality")

	text := doc.Text()
	assert.Equal(t, doc.Pages[0]+"\n"+doc.Pages[1], text)
	assert.Less(t, strings.Index(text, "Population"), strings.Index(text, "Outcome"))
	assert.Equal(t, len([]rune(text)), doc.CharCount())
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, buildPDF(t, "Intervention telemedicine"), 0o600))

	doc, err := ExtractFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, doc.PageCount())
	assert.Contains(t, doc.Text(), "Intervention telemedicine")
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := ExtractBytes([]byte("hello, not a pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPDF))
	assert.True(t, strings.HasPrefix(err.Error(), "failed to extract text from PDF: "))
}

func TestExtractRejectsTruncatedPDF(t *testing.T) {
	data := buildPDF(t, "Comparison usual care")
	_, err := ExtractBytes(data[:len(data)/2])
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to extract text from PDF: "))
}

func TestExtractMissingFile(t *testing.T) {
	_, err := ExtractFile(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExtractContextCancelled(t *testing.T) {
	data := buildPDF(t, "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractContext(ctx, bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCharCountCountsRunes(t *testing.T) {
	doc := &Document{Pages: []string{"héllo", "wörld"}}
	assert.Equal(t, 11, doc.CharCount())
}

func TestNilDocument(t *testing.T) {
	var doc *Document
	assert.Empty(t, doc.Text())
	assert.Zero(t, doc.PageCount())
}
