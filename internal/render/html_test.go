package render

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailflare/internal/store"
)

func testProcessor() *Processor {
	codec := NewTokenCodec("test-secret-test-secret", time.Hour)
	return NewProcessor(codec, "https://track.example.com/")
}

func testFooter() store.Footer {
	return store.Footer{
		Company:  "Acme Corp",
		FromMail: "news@acme.example",
		Address:  "1 Main St",
		Tel:      "555-0100",
	}
}

func TestRenderRewritesLinks(t *testing.T) {
	p := testProcessor()
	html := `<html><body><a href="https://example.com/page?x=1">link</a></body></html>`

	out, err := p.Render(html, "c1", "g1", "r1", testFooter())
	require.NoError(t, err)

	assert.NotContains(t, out, `href="https://example.com/page?x=1"`)
	assert.Contains(t, out, "https://track.example.com/t/click?token=")
	assert.Contains(t, out, "url="+url.QueryEscape("https://example.com/page?x=1"))
}

func TestRenderAppendsPixelAndFooterBeforeBodyClose(t *testing.T) {
	p := testProcessor()
	html := `<html><body><p>hello</p></body></html>`

	out, err := p.Render(html, "c1", "g1", "r1", testFooter())
	require.NoError(t, err)

	pixelAt := strings.Index(out, "/t/open?token=")
	bodyCloseAt := strings.Index(out, "</body>")
	require.NotEqual(t, -1, pixelAt)
	require.NotEqual(t, -1, bodyCloseAt)
	assert.Less(t, pixelAt, bodyCloseAt)

	assert.Contains(t, out, "Acme Corp")
	assert.Contains(t, out, "/t/unsubscribe?token=")
}

func TestRenderWithoutBodyTagAppends(t *testing.T) {
	p := testProcessor()

	out, err := p.Render("<p>bare fragment</p>", "c1", "g1", "r1", testFooter())
	require.NoError(t, err)

	assert.Contains(t, out, "<p>bare fragment</p>")
	assert.Contains(t, out, "/t/open?token=")
	assert.Contains(t, out, "Unsubscribe")
}

func TestNormalizeImagesForcesDisplayBlock(t *testing.T) {
	out := normalizeImages(`<img src="a.png"><img src="b.png" style="display:inline;width:10px">`)

	assert.Contains(t, out, `<img style="display:block;" src="a.png">`)
	assert.Contains(t, out, `style="display:block;width:10px"`)
	assert.NotContains(t, out, "display:inline")
}

func TestRenderedTokenRoundTrips(t *testing.T) {
	codec := NewTokenCodec("test-secret-test-secret", time.Hour)
	p := NewProcessor(codec, "https://track.example.com")

	out, err := p.Render("<body></body>", "c1", "g1", "r1", testFooter())
	require.NoError(t, err)

	// Pull the token back out of the rendered pixel
	start := strings.Index(out, "/t/open?token=") + len("/t/open?token=")
	end := strings.IndexAny(out[start:], `"&`)
	require.NotEqual(t, -1, end)
	token := out[start : start+end]

	info, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "c1", info.CampaignID)
	assert.Equal(t, "g1", info.GroupID)
	assert.Equal(t, "r1", info.RecipientID)
}
