package goquery_test

import (
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("returns title and visible text", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head>
<title> 申請の手引き </title>
<style>body { color: red; }</style>
<script>var hidden = "script text";</script>
</head>
<body>
<h1>手続きについて</h1>
<p>申請書は窓口で<b>受け付けます</b>。</p>
<noscript>enable javascript</noscript>
<iframe src="/ad.html">frame text</iframe>
</body>
</html>`

		result, err := goquery.NewExtractor().Extract([]byte(html))

		require.NoError(t, err)
		assert.Equal(t, "申請の手引き", result.Title)
		assert.Equal(t, "手続きについて\n\n申請書は窓口で受け付けます。", docindex.NormalizeText(result.Text))
		assert.NotContains(t, result.Text, "script text")
		assert.NotContains(t, result.Text, "color: red")
		assert.NotContains(t, result.Text, "enable javascript")
	})

	t.Run("separates block elements with line breaks", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><ul><li>one</li><li>two</li></ul><div>three<br>four</div></body></html>`

		result, err := goquery.NewExtractor().Extract([]byte(html))

		require.NoError(t, err)
		assert.Equal(t, "one\n\ntwo\n\nthree\nfour", docindex.NormalizeText(result.Text))
	})

	t.Run("decodes declared legacy charset", func(t *testing.T) {
		t.Parallel()

		// "テスト" in Shift_JIS.
		body := append([]byte(`<html><head><meta charset="shift_jis"><title>t</title></head><body><p>`),
			0x83, 0x65, 0x83, 0x58, 0x83, 0x67)
		body = append(body, []byte(`</p></body></html>`)...)

		result, err := goquery.NewExtractor().Extract(body)

		require.NoError(t, err)
		assert.Equal(t, "テスト", docindex.NormalizeText(result.Text))
	})

	t.Run("returns empty text for page without body text", func(t *testing.T) {
		t.Parallel()

		result, err := goquery.NewExtractor().Extract([]byte(`<html><head><title>Only title</title></head><body></body></html>`))

		require.NoError(t, err)
		assert.Equal(t, "Only title", result.Title)
		assert.Empty(t, docindex.NormalizeText(result.Text))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewExtractor().Extract(nil)

		require.Error(t, err)
		assert.Equal(t, docindex.EPARSE, docindex.ErrorCode(err))
	})
}
