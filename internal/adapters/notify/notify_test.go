package notify

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/scoring"
	"github.com/mikey/phishguard/internal/utils"
)

const longAddress = "http://paypal.com-secure-login.xyz/account/verify/session?id=1234567890"

func threatVerdict() *core.Verdict {
	return &core.Verdict{
		Address:   longAddress,
		IsThreat:  true,
		RiskLevel: scoring.RiskHigh,
		Score:     0.9,
		Source:    core.SourceFallback,
		ScanID:    "scan-1",
		Reasons:   []string{"Suspicious top-level domain"},
	}
}

type receivedMail struct {
	from string
	to   []string
	data string
}

type testBackend struct {
	mu       sync.Mutex
	received []receivedMail
}

func (b *testBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &testSession{backend: b}, nil
}

type testSession struct {
	backend *testBackend
	mail    receivedMail
}

func (s *testSession) Reset()        { s.mail = receivedMail{} }
func (s *testSession) Logout() error { return nil }

func (s *testSession) Mail(from string, _ *smtp.MailOptions) error {
	s.mail.from = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.mail.to = append(s.mail.to, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mail.data = string(data)
	s.backend.mu.Lock()
	s.backend.received = append(s.backend.received, s.mail)
	s.backend.mu.Unlock()
	return nil
}

func startTestRelay(t *testing.T) (*testBackend, string, int) {
	be := &testBackend{}
	server := smtp.NewServer(be)
	server.Domain = "localhost"
	server.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = server.Serve(l) }()
	t.Cleanup(func() { server.Close() })

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return be, host, port
}

func TestSMTPNotifierSendsTruncatedAddress(t *testing.T) {
	be, host, port := startTestRelay(t)
	logger := zaptest.NewLogger(t)

	n, err := NewSMTPNotifier(SMTPConfig{
		Host:          host,
		Port:          port,
		From:          "phishguard@example.com",
		To:            []string{"security@example.com"},
		SubjectPrefix: "[phishguard]",
		Timeout:       5 * time.Second,
	}, logger, utils.NewTextProcessor(logger))
	require.NoError(t, err)

	require.NoError(t, n.NotifyThreat(context.Background(), threatVerdict()))

	be.mu.Lock()
	defer be.mu.Unlock()
	require.Len(t, be.received, 1)
	mail := be.received[0]
	assert.Equal(t, "phishguard@example.com", mail.from)
	assert.Equal(t, []string{"security@example.com"}, mail.to)
	assert.Contains(t, mail.data, "Subject: [phishguard] High risk threat:")
	assert.Contains(t, mail.data, longAddress[:47]+"...")
	assert.NotContains(t, mail.data, longAddress)
	assert.Contains(t, mail.data, "- Suspicious top-level domain")
}

func TestNewSMTPNotifierValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	_, err := NewSMTPNotifier(SMTPConfig{To: []string{"a@example.com"}}, logger, utils.NewTextProcessor(logger))
	assert.Error(t, err)

	_, err = NewSMTPNotifier(SMTPConfig{Host: "localhost"}, logger, utils.NewTextProcessor(logger))
	assert.Error(t, err)
}

func TestSMTPNotifierUnreachableRelay(t *testing.T) {
	logger := zaptest.NewLogger(t)
	n, err := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: 1, To: []string{"a@example.com"}, Timeout: time.Second}, logger, utils.NewTextProcessor(logger))
	require.NoError(t, err)

	err = n.NotifyThreat(context.Background(), threatVerdict())
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	obsCore, logs := observer.New(zap.WarnLevel)
	logger := zap.New(obsCore)
	n := NewLogNotifier(logger, utils.NewTextProcessor(logger))

	require.NoError(t, n.NotifyThreat(context.Background(), threatVerdict()))

	entries := logs.FilterMessage("Threat detected").All()
	require.Len(t, entries, 1)
	address := entries[0].ContextMap()["address"].(string)
	assert.Len(t, []rune(address), DisplayAddressLength)
	assert.True(t, strings.HasSuffix(address, "..."))
}
