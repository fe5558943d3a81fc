package external

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"snowalert.app/internal/ports"
	"snowalert.app/pkg/errors"
)

// SMTPEmailProviderAdapter implements EmailProvider port using SMTP
type SMTPEmailProviderAdapter struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromAddr  string
	tlsConfig *tls.Config
	logger    ports.Logger
}

// EmailProviderConfig represents SMTP configuration
type EmailProviderConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	FromAddr string
	Logger   ports.Logger
	// TLSConfig overrides the config used for STARTTLS
	TLSConfig *tls.Config
}

// NewSMTPEmailProviderAdapter creates a new SMTP email provider adapter
func NewSMTPEmailProviderAdapter(config EmailProviderConfig) *SMTPEmailProviderAdapter {
	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			ServerName: config.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &SMTPEmailProviderAdapter{
		host:      config.Host,
		port:      config.Port,
		username:  config.Username,
		password:  config.Password,
		fromName:  config.FromName,
		fromAddr:  config.FromAddr,
		tlsConfig: tlsConfig,
		logger:    config.Logger,
	}
}

// SendEmail delivers one message to every recipient over a single SMTP session.
// Authentication completes before any recipient is addressed.
func (p *SMTPEmailProviderAdapter) SendEmail(ctx context.Context, params ports.EmailParams) error {
	if len(params.To) == 0 {
		return errors.NewValidationError("at least one recipient is required")
	}
	for _, to := range params.To {
		if strings.TrimSpace(to) == "" {
			return errors.NewValidationError("recipient email cannot be empty")
		}
	}
	if params.Subject == "" {
		return errors.NewValidationError("email subject cannot be empty")
	}
	if params.Body == "" {
		return errors.NewValidationError("email body cannot be empty")
	}

	msg, err := p.buildMessage(params.To, params.Subject, params.Body)
	if err != nil {
		return errors.NewSMTPError("failed to build message", err)
	}

	client, err := p.dial(ctx)
	if err != nil {
		return errors.NewSMTPError("failed to connect to SMTP server", err)
	}
	defer func() {
		// Close after a successful Quit reports an already-closed connection
		_ = client.Close()
	}()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(p.tlsConfig); err != nil {
			return errors.NewSMTPError("failed to establish secure TLS connection", err)
		}
	} else if !isLoopbackHost(p.host) {
		return errors.NewSMTPError(fmt.Sprintf("SMTP server %s does not offer STARTTLS", p.host), nil)
	}

	if p.username != "" && p.password != "" {
		auth := smtp.PlainAuth("", p.username, p.password, p.host)
		if err := client.Auth(auth); err != nil {
			return errors.NewSMTPError("failed to authenticate", err)
		}
	}

	for _, to := range params.To {
		if err := p.deliver(client, to, msg); err != nil {
			return err
		}
		if p.logger != nil {
			p.logger.Debug("Email delivered to relay", ports.F("to", to))
		}
	}

	if err := client.Quit(); err != nil {
		return errors.NewSMTPError("failed to close SMTP session", err)
	}

	return nil
}

// deliver runs one MAIL/RCPT/DATA transaction inside the open session
func (p *SMTPEmailProviderAdapter) deliver(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(p.fromAddr); err != nil {
		return errors.NewSMTPError("failed to set sender", err)
	}

	if err := client.Rcpt(to); err != nil {
		return errors.NewSMTPError(fmt.Sprintf("failed to set recipient %s", to), err)
	}

	writer, err := client.Data()
	if err != nil {
		return errors.NewSMTPError("failed to get data writer", err)
	}

	if _, err := writer.Write(msg); err != nil {
		_ = writer.Close()
		return errors.NewSMTPError("failed to write message", err)
	}

	// The relay accepts or rejects the message in its reply to the closing dot
	if err := writer.Close(); err != nil {
		return errors.NewSMTPError(fmt.Sprintf("relay rejected message for %s", to), err)
	}

	return nil
}

func (p *SMTPEmailProviderAdapter) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

// isLoopbackHost reports whether host names this machine, where a cleartext session never leaves the host
func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ValidateConfiguration validates the email provider configuration
func (p *SMTPEmailProviderAdapter) ValidateConfiguration() error {
	if p.host == "" {
		return errors.NewConfigurationError("SMTP host cannot be empty", nil)
	}
	if p.port < 1 || p.port > 65535 {
		return errors.NewConfigurationError("SMTP port must be between 1 and 65535", nil)
	}
	if p.fromAddr == "" {
		return errors.NewConfigurationError("from address cannot be empty", nil)
	}
	if p.fromName == "" {
		return errors.NewConfigurationError("from name cannot be empty", nil)
	}
	if (p.username == "") != (p.password == "") {
		return errors.NewConfigurationError("SMTP username and password must both be provided or both be empty", nil)
	}
	return nil
}

// buildMessage constructs a multipart/mixed message with a single plain-text part
func (p *SMTPEmailProviderAdapter) buildMessage(to []string, subject, body string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	from := (&mail.Address{Name: p.fromName, Address: p.fromAddr}).String()

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}

	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
