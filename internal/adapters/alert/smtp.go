package alert

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

const smtpDialTimeout = 10 * time.Second

// SMTPDispatcher e-mails an alert to a fixed list of recipients
type SMTPDispatcher struct {
	address       string
	from          string
	to            []string
	subjectPrefix string
	username      string
	password      string
	logger        *zap.Logger
	now           func() time.Time
}

// NewSMTPDispatcher creates an e-mail dispatcher. PLAIN authentication is
// used when username is set.
func NewSMTPDispatcher(address, from string, to []string, subjectPrefix, username, password string, logger *zap.Logger) (*SMTPDispatcher, error) {
	if address == "" {
		return nil, errors.New("smtp address is required")
	}
	if len(to) == 0 {
		return nil, errors.New("at least one alert recipient is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPDispatcher{
		address:       address,
		from:          from,
		to:            to,
		subjectPrefix: subjectPrefix,
		username:      username,
		password:      password,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Notify sends one message describing the alert
func (d *SMTPDispatcher) Notify(ctx context.Context, alert core.Alert) error {
	dialer := net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.address)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set connection deadline: %w", err)
		}
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		host, _, _ := net.SplitHostPort(d.address)
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}
	if d.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", d.username, d.password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(d.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	accepted := 0
	for _, rcpt := range d.to {
		if err := c.Rcpt(rcpt, nil); err != nil {
			d.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", rcpt),
				zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return errors.New("all alert recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(d.message(alert)); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send alert message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		d.logger.Warn("QUIT command failed", zap.Error(err))
	}

	d.logger.Info("Alert e-mailed",
		zap.String("conversation", alert.Identity),
		zap.Int("recipients", accepted))
	return nil
}

func (d *SMTPDispatcher) message(alert core.Alert) []byte {
	subject := d.subjectPrefix + "Possible romance scam: " + alert.Identity

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", d.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(d.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", d.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "The conversation with %s was classified as %s at %s.\r\n",
		alert.Identity, alert.Label, core.NewTimestamp(alert.DetectedAt))
	b.WriteString("\r\n")
	b.WriteString("Do not send money, gift cards or cryptocurrency to this contact.\r\n")
	return b.Bytes()
}
