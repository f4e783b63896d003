package content

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/utils"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

// HTTPFetcher retrieves a page and reduces it to content signals
type HTTPFetcher struct {
	client        *http.Client
	allowPrivate  bool
	userAgent     string
	maxBodySize   int64
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// Option configures an HTTPFetcher
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header sent with page requests
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps how much of a page is read
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithAllowPrivateNetworks lets pages on loopback, private and link-local
// addresses be fetched
func WithAllowPrivateNetworks(allow bool) Option {
	return func(f *HTTPFetcher) {
		f.allowPrivate = allow
	}
}

// WithHTTPClient replaces the default client
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates a new page fetcher
func NewHTTPFetcher(logger *zap.Logger, tp *utils.TextProcessor, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
		userAgent:     defaultUserAgent,
		maxBodySize:   2 * 1024 * 1024,
		textProcessor: tp,
		logger:        logger,
	}

	for _, opt := range opts {
		opt(f)
	}
	if f.client.Transport == nil {
		f.client.Transport = newTransport(f.allowPrivate)
	}

	return f
}

// FetchSignals implements core.ContentFetcher. A certificate failure is not an
// error: it is reported as a signal of its own.
func (f *HTTPFetcher) FetchSignals(ctx context.Context, address string) (*features.ContentSignals, error) {
	scan, resp, err := f.fetch(ctx, address)
	if err != nil {
		if isCertificateError(err) {
			f.logger.Info("Certificate verification failed",
				zap.String("address", address),
				zap.Error(err))
			return &features.ContentSignals{
				IsSecureScheme:       strings.HasPrefix(address, "https://"),
				HasCertificateIssues: true,
			}, nil
		}
		return nil, err
	}

	signals := scan.Signals(resp.Request.URL)
	signals.HasCertificateIssues = certificateIssues(resp.TLS, time.Now())

	f.logger.Debug("Fetched content signals",
		zap.String("address", address),
		zap.Int("forms", len(scan.Forms)),
		zap.Int("scripts", len(scan.Scripts)),
		zap.Strings("keywords", scan.SuspiciousKeywords),
		zap.Bool("iframe", scan.HasIframe),
		zap.Bool("obfuscated", scan.HasObfuscatedCode))

	return signals, nil
}

// FetchPage returns the full page scan for an address
func (f *HTTPFetcher) FetchPage(ctx context.Context, address string) (*PageScan, error) {
	scan, _, err := f.fetch(ctx, address)
	return scan, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, address string) (*PageScan, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to create request: %v", core.ErrContentUnavailable, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if isCertificateError(err) {
			return nil, nil, err
		}
		if errors.Is(err, ErrDestinationBlocked) {
			f.logger.Warn("Refused to fetch internal address", zap.String("address", address))
			return nil, nil, fmt.Errorf("%w: %w", core.ErrContentUnavailable, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", core.ErrContentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("%w: status %s", core.ErrContentUnavailable, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, nil, fmt.Errorf("%w: unsupported content type %s", core.ErrContentUnavailable, ct)
	}

	parser, err := NewParser(resp.Request.URL.String(), f.textProcessor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrContentUnavailable, err)
	}

	scan, err := parser.Parse(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse page: %v", core.ErrContentUnavailable, err)
	}
	return scan, resp, nil
}

func isCertificateError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var verification *tls.CertificateVerificationError
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification)
}

// certificateIssues flags a verified chain whose leaf is about to expire or
// whose validity window does not cover now
func certificateIssues(state *tls.ConnectionState, now time.Time) bool {
	if state == nil || len(state.PeerCertificates) == 0 {
		return false
	}
	leaf := state.PeerCertificates[0]
	return now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) || leaf.NotAfter.Sub(now) < 72*time.Hour
}
