package content

import (
	"io"
	"math"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/utils"
)

// sensitiveKeywordThreshold is how many distinct keywords a page needs before
// it counts as asking for sensitive information
const sensitiveKeywordThreshold = 2

// obfuscationThreshold is the indicator weight at which scripts count as obfuscated
const obfuscationThreshold = 5

var sensitiveKeywords = []string{
	"password", "credit card", "login", "signin", "sign in", "bank", "account",
	"social security", "ssn", "credentials", "verification", "authorize",
	"update your account", "verify", "confirm", "validate", "unusual activity",
	"billing", "payment", "authenticate", "unusual sign-in", "suspended",
	"locked", "verify now", "reactivate", "recover", "reset",
}

var obfuscationPatterns = []struct {
	re     *regexp.Regexp
	weight int
}{
	{regexp.MustCompile(`(?i)eval\s*\(`), 3},
	{regexp.MustCompile(`(?i)document\.write\s*\(\s*unescape\s*\(`), 3},
	{regexp.MustCompile(`String\.fromCharCode\(`), 2},
	{regexp.MustCompile(`(?i)\\x[0-9a-f]{2}`), 2},
	{regexp.MustCompile(`(?i)\\u[0-9a-f]{4}`), 2},
	{regexp.MustCompile(`[A-Za-z0-9+/]{100,}={0,2}`), 3},
	{regexp.MustCompile(`function\(\s*\w\s*,\s*\w\s*,\s*\w\s*,\s*\w\s*\)`), 1},
}

// Form is a form found on a page
type Form struct {
	Action         string `json:"action"`
	Method         string `json:"method"`
	HasPassword    bool   `json:"hasPassword"`
	HiddenFields   int    `json:"hiddenFields"`
	ExternalAction bool   `json:"externalAction"`
}

// PageScan is everything the parser collects from a page
type PageScan struct {
	Forms              []Form   `json:"forms"`
	Scripts            []string `json:"scripts"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
	HasPasswordField   bool     `json:"hasPasswordField"`
	HasIframe          bool     `json:"hasIframe"`
	HasObfuscatedCode  bool     `json:"hasObfuscatedCode"`
}

// Parser extracts phishing signals from HTML
type Parser struct {
	baseURL       *url.URL
	textProcessor *utils.TextProcessor
}

// NewParser creates a parser that resolves relative form actions against baseURL
func NewParser(baseURL string, tp *utils.TextProcessor) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u, textProcessor: tp}, nil
}

// Parse walks the document once and collects forms, scripts and text
func (p *Parser) Parse(r io.Reader) (*PageScan, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	scan := &PageScan{
		Forms:              make([]Form, 0),
		Scripts:            make([]string, 0),
		SuspiciousKeywords: make([]string, 0),
	}

	var text strings.Builder
	var inlineScripts strings.Builder

	var walk func(*html.Node, *Form)
	walk = func(n *html.Node, form *Form) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				f := Form{
					Action: p.resolveURL(getAttr(n, "action")),
					Method: strings.ToUpper(getAttr(n, "method")),
				}
				if f.Method == "" {
					f.Method = "GET"
				}
				f.ExternalAction = p.isExternal(f.Action)
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, &f)
				}
				scan.Forms = append(scan.Forms, f)
				return
			case "input":
				switch strings.ToLower(getAttr(n, "type")) {
				case "password":
					scan.HasPasswordField = true
					if form != nil {
						form.HasPassword = true
					}
				case "hidden":
					if form != nil {
						form.HiddenFields++
					}
				}
			case "iframe", "frame":
				scan.HasIframe = true
			case "script":
				if src := getAttr(n, "src"); src != "" {
					scan.Scripts = append(scan.Scripts, p.resolveURL(src))
				} else if n.FirstChild != nil {
					inlineScripts.WriteString(n.FirstChild.Data)
					inlineScripts.WriteString("\n")
				}
				return
			case "style":
				return
			}
		}

		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, form)
		}
	}
	walk(doc, nil)

	scan.SuspiciousKeywords = p.matchKeywords(text.String())
	scan.HasObfuscatedCode = obfuscationScore(inlineScripts.String()) >= obfuscationThreshold

	return scan, nil
}

// Signals reduces a page scan to the content signals the extractor consumes.
// The form action reported is the one of a password form when there is one.
func (s *PageScan) Signals(finalURL *url.URL) *features.ContentSignals {
	signals := &features.ContentSignals{
		HasPasswordField:     s.HasPasswordField,
		HasSensitiveKeywords: len(s.SuspiciousKeywords) >= sensitiveKeywordThreshold,
		IsSecureScheme:       finalURL != nil && finalURL.Scheme == "https",
	}

	for _, f := range s.Forms {
		if f.Action == "" {
			continue
		}
		if signals.FormActionAddress == "" || f.HasPassword {
			signals.FormActionAddress = f.Action
		}
		if f.HasPassword {
			break
		}
	}
	return signals
}

func (p *Parser) matchKeywords(text string) []string {
	folded := p.textProcessor.Fold(text)
	found := make([]string, 0)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(folded, keyword) {
			found = append(found, keyword)
		}
	}
	return found
}

// resolveURL converts a relative URL to absolute using the base URL
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(ref).String()
}

func (p *Parser) isExternal(action string) bool {
	if action == "" {
		return false
	}
	u, err := url.Parse(action)
	if err != nil {
		return false
	}
	return !strings.EqualFold(u.Hostname(), p.baseURL.Hostname())
}

// obfuscationScore sums the weights of the obfuscation indicators in script text
func obfuscationScore(script string) int {
	if script == "" {
		return 0
	}
	score := 0
	for _, pattern := range obfuscationPatterns {
		if pattern.re.MatchString(script) {
			score += pattern.weight
		}
	}
	if len(script) > 200 && shannonEntropy(script) > 4.5 {
		score += 2
	}
	return score
}

func shannonEntropy(s string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	var entropy float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
