package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeMessagePlainHTML(t *testing.T) {
	raw := composeMessage(&Message{
		From:    "news@example.com",
		To:      "a@example.com",
		Subject: "Hello",
		HTML:    "<p>hi</p>",
		Headers: map[string]string{
			HeaderCampaignID: "c1",
			HeaderABVariant:  "A",
		},
	})

	assert.True(t, strings.HasPrefix(raw, "From: news@example.com\r\n"))
	assert.Contains(t, raw, "To: a@example.com\r\n")
	assert.Contains(t, raw, "Subject: Hello\r\n")
	assert.Contains(t, raw, "X-AB-Variant: A\r\n")
	assert.Contains(t, raw, "X-Campaign-ID: c1\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")

	// Correlation headers come before the body in sorted order
	assert.Less(t, strings.Index(raw, "X-AB-Variant"), strings.Index(raw, "X-Campaign-ID"))
}

func TestComposeMessageSenderName(t *testing.T) {
	raw := composeMessage(&Message{
		From:     "news@example.com",
		FromName: "Acme News",
		To:       "a@example.com",
		Subject:  "Hello",
		HTML:     "<p>hi</p>",
	})

	assert.Contains(t, raw, "From: Acme News <news@example.com>\r\n")
}

func TestComposeMessagePreviewTextBecomesAlternativePart(t *testing.T) {
	raw := composeMessage(&Message{
		From:        "news@example.com",
		To:          "a@example.com",
		Subject:     "Hello",
		PreviewText: "A quick look inside",
		HTML:        "<p>hi</p>",
	})

	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n\r\nA quick look inside")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}
