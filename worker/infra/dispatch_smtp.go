package infra

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"edge-worker/worker/domain"

	"github.com/jordan-wright/email"
)

type SMTPOptions struct {
	Host string
	Port int
	User string
	Pass string
	// SSL usa TLS implícito (porta 465); caso contrário STARTTLS quando o servidor oferece.
	SSL bool
}

// SMTPDispatcher entrega via SMTP usando github.com/jordan-wright/email.
type SMTPDispatcher struct {
	opts SMTPOptions
	send func(m *email.Email, addr string, auth smtp.Auth, tlsConfig *tls.Config) error
}

func NewSMTPDispatcher(opts SMTPOptions) *SMTPDispatcher {
	if opts.Port == 0 {
		opts.Port = 587
	}
	return &SMTPDispatcher{opts: opts, send: deliverSMTP}
}

func deliverSMTP(m *email.Email, addr string, auth smtp.Auth, tlsConfig *tls.Config) error {
	if tlsConfig != nil {
		return m.SendWithTLS(addr, auth, tlsConfig)
	}
	return m.Send(addr, auth)
}

// Send não respeita cancelamento no meio da conversa SMTP; o ctx só é
// checado antes de conectar.
func (d *SMTPDispatcher) Send(ctx context.Context, e domain.Email) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}

	addr := net.JoinHostPort(d.opts.Host, strconv.Itoa(d.opts.Port))

	var auth smtp.Auth
	if d.opts.User != "" {
		auth = smtp.PlainAuth("", d.opts.User, d.opts.Pass, d.opts.Host)
	}

	var tlsConfig *tls.Config
	if d.opts.SSL {
		tlsConfig = &tls.Config{ServerName: d.opts.Host, MinVersion: tls.VersionTLS12}
	}

	if err := d.send(smtpMessage(e), addr, auth, tlsConfig); err != nil {
		return fmt.Errorf("%w: smtp %s: %v", domain.ErrDispatchFailed, addr, err)
	}
	return nil
}

func smtpMessage(e domain.Email) *email.Email {
	m := email.NewEmail()
	m.From = e.From
	m.To = []string{e.To}
	if e.ReplyTo != "" {
		m.ReplyTo = []string{e.ReplyTo}
	}
	m.Subject = e.Subject
	m.HTML = []byte(e.HTMLBody)
	return m
}
