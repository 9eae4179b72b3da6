package mailer

import (
	"context"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"golang.org/x/time/rate"

	"mailflare/internal/config"
)

// Message is one outbound mail, fully rendered. Headers carries the
// correlation headers the dispatcher stamps onto each send.
type Message struct {
	From        string
	FromName    string
	To          string
	Subject     string
	PreviewText string
	HTML        string
	Headers     map[string]string
}

// Transport delivers a rendered message to a single recipient.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPTransport sends mail through a single upstream relay, throttled to
// the configured per-second rate.
type SMTPTransport struct {
	config  config.SMTPConfig
	limiter *rate.Limiter
}

var _ Transport = (*SMTPTransport)(nil)

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.MaxSendRate), cfg.MaxSendRate),
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	var auth sasl.Client
	if t.config.Username != "" {
		auth = sasl.NewPlainClient("", t.config.Username, t.config.Password)
	}

	addr := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)
	body := composeMessage(msg)

	if err := smtp.SendMail(addr, auth, msg.From, []string{msg.To}, strings.NewReader(body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	return nil
}

// composeMessage builds the raw RFC 5322 message. The preview text becomes
// the text/plain part of a multipart/alternative body so clients surface it
// as the inbox snippet.
func composeMessage(msg *Message) string {
	const boundary = "mailflare-alt"

	var b strings.Builder

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	}

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	// Deterministic header order keeps the wire format stable for tests.
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, msg.Headers[k])
	}

	if msg.PreviewText != "" {
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.PreviewText)
		fmt.Fprintf(&b, "\r\n--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.HTML)
		fmt.Fprintf(&b, "\r\n--%s--\r\n", boundary)
		return b.String()
	}

	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)
	return b.String()
}
