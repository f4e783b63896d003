package core

import (
	"math"
	"regexp"
	"strings"

	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/scoring"
)

// Fallback heuristic weights and threshold
const (
	fallbackIPWeight         = 0.4
	fallbackSubdomainWeight  = 0.2
	fallbackTLDWeight        = 0.3
	fallbackPatternWeight    = 0.3
	fallbackThreatThreshold  = 0.4
	fallbackHighRiskBoundary = 0.6
)

// brandLure matches brand names commonly impersonated by phishing hosts
var brandLure = regexp.MustCompile(`(?i)(paypal|apple|microsoft|amazon|netflix|facebook|google|instagram|wellsfargo|chase|bankofamerica|coinbase|blockchain|linkedin|dropbox|yahoo|outlook|office365|icloud|steam)`)

// credentialLure matches wording used to bait credential entry
var credentialLure = regexp.MustCompile(`(?i)(log-?in|sign-?in|secure|verify|verification|account|update|confirm|password|banking|wallet|unlock)`)

// FallbackAssessment is the outcome of the local heuristic
type FallbackAssessment struct {
	Probability    float64
	PatternMatches int
	IsThreat       bool
	RiskLevel      scoring.RiskLevel
}

// EvaluateFallback scores an address locally when the remote scorer is
// unavailable. The result is deterministic for a given address and vector.
// The pattern term adds fallbackPatternWeight per matched family (brand lure
// and credential lure), so it alone can contribute up to 0.6.
func EvaluateFallback(address string, v features.Vector) FallbackAssessment {
	matches := suspiciousPatternMatches(address)

	p := fallbackIPWeight*v.Get(features.HasIPAddress) +
		fallbackSubdomainWeight*v.Get(features.HasManySubdomains) +
		fallbackTLDWeight*v.Get(features.HasSuspiciousTLD) +
		fallbackPatternWeight*float64(matches)
	p = math.Min(p, 1)

	a := FallbackAssessment{
		Probability:    p,
		PatternMatches: matches,
		IsThreat:       p > fallbackThreatThreshold,
		RiskLevel:      scoring.RiskLow,
	}
	if a.IsThreat {
		a.RiskLevel = scoring.RiskMedium
		if p > fallbackHighRiskBoundary {
			a.RiskLevel = scoring.RiskHigh
		}
	}
	return a
}

// suspiciousPatternMatches counts the fixed pattern families an address
// matches: a brand name on a host that is not the brand's own domain, and
// credential bait wording anywhere in the address.
func suspiciousPatternMatches(address string) int {
	matches := 0
	host := features.Host(address)

	if brand := brandLure.FindString(host); brand != "" && !isOfficialHost(host, strings.ToLower(brand)) {
		matches++
	}
	if credentialLure.MatchString(address) {
		matches++
	}
	return matches
}

func isOfficialHost(host, brand string) bool {
	official := brand + ".com"
	return host == official || strings.HasSuffix(host, "."+official)
}
