package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/codeseek/internal/record"
)

func TestCaption(t *testing.T) {
	hit := record.Hit{Collection: "hd_chinese_subtitles", Record: record.Record{
		"number":    "ABC-123",
		"title":     "Tom & Jerry <script>alert(1)</script>",
		"date":      "2024-01-02",
		"post_time": "2024-01-03 10:00",
		"tid":       float64(991),
		"magnet":    "magnet:?xt=urn:btih:abc&dn=x",
	}}

	want := "<b>★Result: ABC-123★</b>\n" +
		"<b>Title:</b> Tom &amp; Jerry\n" +
		"<b>Code:</b> ABC-123\n" +
		"<b>Date:</b> 2024-01-02\n" +
		"<b>Posted:</b> 2024-01-03 10:00\n" +
		"<b>tid:</b> 991\n" +
		"<b>Collection:</b> hd_chinese_subtitles\n" +
		"<b>Magnet:</b> <code>magnet:?xt=urn:btih:abc&amp;dn=x</code>"
	assert.Equal(t, want, Caption(hit))
}

func TestCaptionMissingFields(t *testing.T) {
	caption := Caption(record.Hit{Collection: "X", Record: record.Record{"serial": "S-1"}})

	assert.Contains(t, caption, "<b>Code:</b> S-1")
	assert.Contains(t, caption, "<b>Title:</b> N/A")
	assert.Contains(t, caption, "<b>Date:</b> N/A")
	assert.Contains(t, caption, "<code>N/A</code>")
}

func TestNotFoundEscapesCode(t *testing.T) {
	assert.Equal(t, "<b>ℹ️ Code: A&amp;B</b>\n❌ Not found locally", NotFound("A&B"))
}

func TestPlainText(t *testing.T) {
	text := PlainText(Caption(record.Hit{Collection: "X", Record: record.Record{
		"number": "ABC-123",
		"magnet": "magnet:?xt=a&dn=b",
	}}))

	assert.NotContains(t, text, "<b>")
	assert.Contains(t, text, "Code: ABC-123")
	assert.Contains(t, text, "magnet:?xt=a&dn=b")
	assert.Contains(t, text, "\n")
}
