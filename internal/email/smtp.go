package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/divecrm/divecrm/internal/config"
)

// SMTPSender implements Sender over a direct SMTP connection. It supports
// implicit TLS (SMTPS, port 465) and STARTTLS, with AUTH PLAIN.
type SMTPSender struct {
	cfg      config.SMTPEmailConfig
	from     string
	fromName string
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(cfg config.SMTPEmailConfig, fromAddress, fromName string) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}
	if fromAddress == "" {
		fromAddress = cfg.Username
	}
	if fromAddress == "" {
		return nil, fmt.Errorf("smtp: from address is required")
	}
	return &SMTPSender{cfg: cfg, from: fromAddress, fromName: fromName}, nil
}

// Send delivers one message. Each call opens a fresh short-lived connection
// so a slow tick never pins server resources.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	client, err := s.dial(ctx)
	if err != nil {
		return classify(ReasonConnect, err)
	}
	defer client.Close()

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return &DeliveryError{Reason: ReasonAuth, Transient: false, Err: err}
		}
	}

	if err := client.Mail(s.from); err != nil {
		return classify(ReasonProtocol, err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return classify(ReasonRecipient, err)
	}

	w, err := client.Data()
	if err != nil {
		return classify(ReasonProtocol, err)
	}
	if _, err := w.Write(buildMIME(formatFrom(s.fromName, s.from), msg)); err != nil {
		return classify(ReasonProtocol, err)
	}
	if err := w.Close(); err != nil {
		return classify(ReasonProtocol, err)
	}

	return client.Quit()
}

// dial opens the SMTP session, honoring the context deadline on the
// underlying connection.
func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	dialer := &net.Dialer{}

	var conn net.Conn
	var err error
	if s.cfg.ImplicitTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", s.cfg.Addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", s.cfg.Addr())
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if !s.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				client.Close()
				return nil, err
			}
		}
	}

	return client, nil
}
