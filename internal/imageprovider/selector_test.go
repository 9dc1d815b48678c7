package imageprovider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const selectorPage = `<html><head><meta property="og:image" content="og.jpg"></head><body>
<div id="postlist">
  <div class="t_f first"><img id="a" src="a.jpg"><span><img id="b" src="b.jpg"></span></div>
  <div class="t_f"><img id="c" file="c.jpg"></div>
</div>
<div class="product-image-box"><img id="d" src="d.jpg"></div>
<img id="e" class="video-cover lazy" src="e.jpg">
</body></html>`

func parsePage(t *testing.T) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(selectorPage))
	require.NoError(t, err)
	return doc
}

func ids(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, attr(n, "id"))
	}
	return out
}

func TestQuerySelectorAll(t *testing.T) {
	t.Parallel()
	doc := parsePage(t)

	tests := []struct {
		selector string
		want     []string
	}{
		{"#postlist .t_f img", []string{"a", "b", "c"}},
		{".first img", []string{"a", "b"}},
		{"img.video-cover", []string{"e"}},
		{".lazy", []string{"e"}},
		{`[class*="image"] img`, []string{"d"}},
		{"img[file]", []string{"c"}},
		{"img[src=b.jpg]", []string{"b"}},
		{"table img", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			t.Parallel()
			got := querySelectorAll(doc, tt.selector)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestQuerySelectorMeta(t *testing.T) {
	t.Parallel()
	doc := parsePage(t)

	n := querySelector(doc, `meta[property="og:image"]`)
	require.NotNil(t, n)
	assert.Equal(t, "og.jpg", attr(n, "content"))
	assert.Nil(t, querySelector(doc, `meta[property="og:title"]`))
}

func TestFirstAttr(t *testing.T) {
	t.Parallel()
	doc := parsePage(t)

	assert.Equal(t, "c.jpg", firstAttr(querySelector(doc, "#c"), "file", "src"))
	assert.Equal(t, "a.jpg", firstAttr(querySelector(doc, "#a"), "file", "src"))
	assert.Empty(t, firstAttr(nil, "src"))
}

func TestAbsolutize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref, origin, want string
	}{
		{"https://a/b.jpg", "https://x", "https://a/b.jpg"},
		{"//pics.example.com/a.jpg", "https://x", "https://pics.example.com/a.jpg"},
		{"/covers/a.jpg", "https://www.javdb.com", "https://www.javdb.com/covers/a.jpg"},
		{"forum.php?tid=1", "https://sehuatang.org", "https://sehuatang.org/forum.php?tid=1"},
		{"", "https://x", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, absolutize(tt.ref, tt.origin), tt.ref)
	}
}

func TestCodeHelpers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ABC-123", queryCode(" ＡＢＣ－１２３ "))
	assert.Equal(t, "midv076", compactCode("MIDV-076"))
	assert.Equal(t, "https://w/ABC%20123", expandTemplate("https://w/{code}", "ABC 123"))
	assert.Equal(t, "https://s/?q=A%26B", expandTemplate("https://s/?q={code}", "A&B"))
}
