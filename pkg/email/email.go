package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"go-healthcare-frontdesk/config"
	"go-healthcare-frontdesk/internal/domain"
)

// EmailService sends submissions via SMTP
type EmailService struct {
	host      string
	port      string
	username  string
	password  string
	fromEmail string
	signer    *DKIMSigner
	now       func() time.Time
}

var _ domain.Mailer = (*EmailService)(nil)

// NewEmailService creates a new email service from the SMTP configuration
func NewEmailService(cfg *config.Config, signer *DKIMSigner) *EmailService {
	return &EmailService{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		fromEmail: cfg.SMTPFromEmail,
		signer:    signer,
		now:       time.Now,
	}
}

// Sender returns the envelope/From address used for every message
func (s *EmailService) Sender() string {
	return s.fromEmail
}

// IsConfigured checks if the email service has valid SMTP configuration
func (s *EmailService) IsConfigured() bool {
	return s.host != "" && s.username != "" && s.password != ""
}

// Send delivers msg in a single attempt. The context deadline bounds dial and the whole SMTP exchange.
func (s *EmailService) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email service is not configured")
	}
	// Work on a copy; the caller's message is left untouched
	out := *msg
	if out.From == "" {
		out.From = s.fromEmail
	}

	raw, err := BuildMessage(&out, s.now())
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}
	raw, err = s.signer.Sign(raw, out.From)
	if err != nil {
		return err
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	// Closing the connection unblocks any in-flight read/write on cancellation
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if err := s.deliver(client, &out, raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to send email: %w", ctxErr)
		}
		return fmt.Errorf("failed to send email: %w", err)
	}
	return client.Quit()
}

func (s *EmailService) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.host, s.port)
	// Port 465 speaks TLS from the first byte; everything else upgrades with STARTTLS
	if s.port == "465" {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func (s *EmailService) deliver(client *smtp.Client, msg *domain.OutboundMessage, raw []byte) error {
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(s.fromEmail); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	return w.Close()
}
