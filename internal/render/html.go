package render

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"mailflare/internal/store"
)

var (
	linkPattern    = regexp.MustCompile(`<a\s+[^>]*href="([^"]+)"`)
	imgPattern     = regexp.MustCompile(`<img[^>]*>`)
	stylePattern   = regexp.MustCompile(`style="([^"]*)"`)
	displayPattern = regexp.MustCompile(`display\s*:\s*[^;]+;?`)
)

// Processor rewrites campaign HTML for delivery: every link is routed
// through the click tracker, an invisible open pixel and the group footer
// with an unsubscribe link are appended before </body>.
type Processor struct {
	codec   *TokenCodec
	baseURL string
}

func NewProcessor(codec *TokenCodec, baseURL string) *Processor {
	return &Processor{codec: codec, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *Processor) Render(html, campaignID, groupID, recipientID string, footer store.Footer) (string, error) {
	token, err := p.codec.Generate(campaignID, groupID, recipientID)
	if err != nil {
		return "", fmt.Errorf("failed to generate tracking token: %w", err)
	}

	html = p.rewriteLinks(html, token)
	html = normalizeImages(html)

	pixel := fmt.Sprintf(
		`<img src="%s/t/open?token=%s" width="1" height="1" style="display:block;margin:0;padding:0;border:none;font-size:0;line-height:0;" />`,
		p.baseURL, token)

	unsubscribeURL := fmt.Sprintf("%s/t/unsubscribe?token=%s", p.baseURL, token)
	footerHTML := fmt.Sprintf(`<div style="margin-top:32px;padding:24px 0 0 0;font-size:12px;color:#888;border-top:1px solid #eee;text-align:center;">
  <strong>%s</strong><br/>
  %s<br/>%s<br/>%s<br/>
  <a href="%s" style="color:#007aff;text-decoration:underline;" target="_blank">Unsubscribe</a>
</div>`, footer.Company, footer.FromMail, footer.Address, footer.Tel, unsubscribeURL)

	if strings.Contains(html, "</body>") {
		return strings.Replace(html, "</body>", pixel+footerHTML+"</body>", 1), nil
	}
	return html + pixel + footerHTML, nil
}

func (p *Processor) rewriteLinks(html, token string) string {
	return linkPattern.ReplaceAllStringFunc(html, func(match string) string {
		groups := linkPattern.FindStringSubmatch(match)
		original := groups[1]
		tracking := fmt.Sprintf("%s/t/click?token=%s&url=%s", p.baseURL, token, url.QueryEscape(original))
		return strings.Replace(match, original, tracking, 1)
	})
}

// normalizeImages forces display:block on every img so mail clients do not
// add gaps around the tracking pixel or content images.
func normalizeImages(html string) string {
	return imgPattern.ReplaceAllStringFunc(html, func(tag string) string {
		if stylePattern.MatchString(tag) {
			return stylePattern.ReplaceAllStringFunc(tag, func(style string) string {
				groups := stylePattern.FindStringSubmatch(style)
				cleaned := displayPattern.ReplaceAllString(groups[1], "")
				return `style="display:block;` + cleaned + `"`
			})
		}
		return strings.Replace(tag, "<img", `<img style="display:block;"`, 1)
	})
}
