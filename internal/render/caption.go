package render

import (
	"fmt"
	"strings"

	"github.com/k3a/html2text"
	"github.com/microcosm-cc/bluemonday"

	"github.com/tphakala/codeseek/internal/record"
)

// strict strips all markup and escapes the remaining text for HTML output.
var strict = bluemonday.StrictPolicy()

// field sanitizes a record value for a Telegram HTML caption.
func field(value string) string {
	if value = strings.TrimSpace(strict.Sanitize(value)); value == "" {
		return record.Unknown
	}
	return value
}

// Caption renders a search hit as a Telegram HTML caption.
func Caption(hit record.Hit) string {
	r := hit.Record
	code := field(r.Code())

	var b strings.Builder
	fmt.Fprintf(&b, "<b>★Result: %s★</b>\n", code)
	fmt.Fprintf(&b, "<b>Title:</b> %s\n", field(r.Title()))
	fmt.Fprintf(&b, "<b>Code:</b> %s\n", code)
	fmt.Fprintf(&b, "<b>Date:</b> %s\n", field(r.Date()))
	fmt.Fprintf(&b, "<b>Posted:</b> %s\n", field(r.PostTime()))
	fmt.Fprintf(&b, "<b>tid:</b> %s\n", field(r.ThreadID()))
	fmt.Fprintf(&b, "<b>Collection:</b> %s\n", field(hit.Collection))
	fmt.Fprintf(&b, "<b>Magnet:</b> <code>%s</code>", field(r.Link()))
	return b.String()
}

// RecommendCaption renders a recommended record with its code and magnet link only.
func RecommendCaption(hit record.Hit) string {
	return fmt.Sprintf("<b>Code:</b> %s\n<b>Magnet:</b> <code>%s</code>",
		field(hit.Record.Code()), field(hit.Record.Link()))
}

// NotFound renders the reply for a code without local records.
func NotFound(code string) string {
	return fmt.Sprintf("<b>ℹ️ Code: %s</b>\n❌ Not found locally", field(code))
}

// PlainText converts a caption to plain text for non-HTML outputs.
func PlainText(caption string) string {
	caption = strings.ReplaceAll(caption, "\n", "<br>")
	return strings.TrimSpace(html2text.HTML2TextWithOptions(caption, html2text.WithUnixLineBreaks()))
}
