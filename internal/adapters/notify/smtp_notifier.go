package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

// SMTPConfig holds the mail relay settings for threat notifications
type SMTPConfig struct {
	Host          string
	Port          int
	From          string
	To            []string
	SubjectPrefix string
	Timeout       time.Duration
}

// SMTPNotifier announces threats by mail
type SMTPNotifier struct {
	cfg           SMTPConfig
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(cfg SMTPConfig, logger *zap.Logger, tp *utils.TextProcessor) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("at least one notification recipient is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPNotifier{cfg: cfg, logger: logger, textProcessor: tp}, nil
}

// NotifyThreat implements core.Notifier
func (n *SMTPNotifier) NotifyThreat(ctx context.Context, verdict *core.Verdict) error {
	return n.send(ctx, n.buildMessage(verdict))
}

func (n *SMTPNotifier) buildMessage(verdict *core.Verdict) []byte {
	display := n.textProcessor.ShortenAddress(verdict.Address, DisplayAddressLength)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s %s risk threat: %s\r\n", n.cfg.SubjectPrefix, verdict.RiskLevel, display)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "Address: %s\r\n", display)
	fmt.Fprintf(&msg, "Risk level: %s\r\n", verdict.RiskLevel)
	fmt.Fprintf(&msg, "Score: %.2f\r\n", verdict.Score)
	fmt.Fprintf(&msg, "Source: %s\r\n", verdict.Source)
	if verdict.ScanID != "" {
		fmt.Fprintf(&msg, "Scan: %s\r\n", verdict.ScanID)
	}
	if len(verdict.Reasons) > 0 {
		msg.WriteString("\r\nReasons:\r\n")
		for _, reason := range verdict.Reasons {
			fmt.Fprintf(&msg, "- %s\r\n", reason)
		}
	}
	return msg.Bytes()
}

func (n *SMTPNotifier) send(ctx context.Context, message []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprint(n.cfg.Port))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	dialer := &net.Dialer{Timeout: n.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to mail relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(n.cfg.Timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(n.cfg.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range n.cfg.To {
		if err := c.Rcpt(recipient, nil); err != nil {
			n.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(message); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send notification data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		n.logger.Warn("QUIT command failed", zap.Error(err))
	}

	n.logger.Info("Threat notification sent", zap.Strings("recipients", n.cfg.To))
	return nil
}
