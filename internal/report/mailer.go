package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
)

type Message struct {
	To       string
	Subject  string
	Body     string
	Filename string
	Data     []byte
}

// Mailer is the delivery channel for the nightly export.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends a two-part MIME message (text body + attachment)
// through a plain SMTP relay.
type SMTPMailer struct {
	Addr string // host:port
	From string
}

const mimeBoundary = "reportboundary42"

func (m SMTPMailer) Send(_ context.Context, msg Message) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/csv\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", msg.Filename)
	b.WriteString(base64.StdEncoding.EncodeToString(msg.Data))
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)

	if err := smtp.SendMail(m.Addr, nil, m.From, []string{msg.To}, b.Bytes()); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// MailerFunc adapts a function to Mailer; tests capture sent messages
// with it.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
