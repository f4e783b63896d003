package features

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

// ErrMalformedAddress is returned by Normalize when an address cannot be parsed
var ErrMalformedAddress = errors.New("malformed address")

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// suspiciousTLDs are top-level domains commonly registered for phishing
var suspiciousTLDs = []string{
	".xyz", ".top", ".gq", ".ml", ".ga", ".cf", ".tk", ".info",
	".work", ".pro", ".men", ".loan", ".click", ".date", ".racing",
	".online", ".stream", ".win", ".review", ".vip", ".party", ".shop",
	".gdn", ".bid", ".accountant", ".website", ".space",
}

// Extractor derives feature vectors from addresses and content signals
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new feature extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Normalize lower-cases the scheme and host, converts the host to its ASCII
// form and drops the fragment.
func Normalize(address string) (string, error) {
	u, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

func parseAddress(address string) (*url.URL, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedAddress)
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing scheme or host in %q", ErrMalformedAddress, address)
	}
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	return u, nil
}

// Host returns the normalized host of an address, or "" when malformed
func Host(address string) string {
	u, err := parseAddress(address)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Extract builds a complete feature vector. A malformed address yields an
// all-zero vector; extraction never fails.
func (e *Extractor) Extract(address string, signals *ContentSignals) Vector {
	v := NewVector()

	u, err := parseAddress(address)
	if err != nil {
		e.logger.Warn("Feature extraction failed, using empty vector",
			zap.String("address", address),
			zap.Error(err))
		return v
	}
	host := u.Hostname()

	v[HasIPAddress] = boolValue(ipv4Pattern.MatchString(host))
	v[URLLength] = lengthValue(len(address))
	v[HasAtSymbol] = boolValue(strings.Contains(address, "@"))
	v[HasManySubdomains] = boolValue(len(strings.Split(host, ".")) > 3)
	v[HasSuspiciousTLD] = boolValue(hasSuspiciousTLD(host))
	v[HasHyphens] = hyphenValue(host)
	// the address's own scheme decides; a redirect target does not change it
	v[IsNotHTTPS] = boolValue(u.Scheme != "https")

	if signals != nil {
		v[HasPasswordField] = boolValue(signals.HasPasswordField)
		v[HasSensitiveKeywords] = boolValue(signals.HasSensitiveKeywords)
		v[HasCertificateIssues] = boolValue(signals.HasCertificateIssues)
		v[MismatchedFormAction] = boolValue(formActionMismatch(u, signals.FormActionAddress))
	}

	e.logger.Debug("Extracted features",
		zap.String("address", address),
		zap.Any("features", v))

	return v
}

func hasSuspiciousTLD(host string) bool {
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

func formActionMismatch(page *url.URL, action string) bool {
	action = strings.TrimSpace(action)
	if action == "" {
		return false
	}
	ref, err := url.Parse(action)
	if err != nil {
		return false
	}
	resolved := page.ResolveReference(ref)
	if resolved.Hostname() == "" {
		return false
	}
	return !strings.EqualFold(resolved.Hostname(), page.Hostname())
}

func lengthValue(n int) float64 {
	switch {
	case n > 75:
		return 1
	case n > 50:
		return 0.5
	default:
		return 0
	}
}

func hyphenValue(host string) float64 {
	segments := len(strings.Split(host, "-"))
	switch {
	case segments > 2:
		return 1
	case segments > 1:
		return 0.5
	default:
		return 0
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
