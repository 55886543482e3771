package pdf_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a single-page PDF showing lines in Helvetica, with a
// correct cross-reference table.
func buildPDF(title string, lines []string) []byte {
	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 72 720 Td 14 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", line)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		fmt.Sprintf("<< /Title (%s) >>", title),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("returns text layer and info title", func(t *testing.T) {
		t.Parallel()

		raw := buildPDF("Annual Report", []string{
			"Section one describes the permit application process in detail.",
			"Section two lists the fees charged for each review step.",
		})

		result, err := pdf.NewExtractor().Extract(raw)

		require.NoError(t, err)
		assert.Equal(t, "Annual Report", result.Title)
		assert.Contains(t, result.Text, "permit application process")
		assert.Contains(t, result.Text, "fees charged")
	})

	t.Run("rejects bytes that are not a PDF", func(t *testing.T) {
		t.Parallel()

		_, err := pdf.NewExtractor().Extract([]byte("<html>not a pdf</html>"))

		require.Error(t, err)
		assert.Equal(t, docindex.EPARSE, docindex.ErrorCode(err))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := pdf.NewExtractor().Extract(nil)

		require.Error(t, err)
		assert.Equal(t, docindex.EPARSE, docindex.ErrorCode(err))
	})
}
