package scoring

import (
	"math"
	"strings"

	"github.com/mikey/phishguard/internal/features"
)

// PhishingThreshold is the score above which an address is classified as phishing
const PhishingThreshold = 0.6

// RiskLevel buckets a score into Low, Medium or High
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ParseRiskLevel converts a threat level label into a RiskLevel
func ParseRiskLevel(s string) (RiskLevel, bool) {
	for _, level := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		if strings.EqualFold(strings.TrimSpace(s), string(level)) {
			return level, true
		}
	}
	return "", false
}

// Assessment is the output of the scoring model
type Assessment struct {
	Score      float64   `json:"score"`
	IsPhishing bool      `json:"isPhishing"`
	Confidence float64   `json:"confidence"`
	RiskLevel  RiskLevel `json:"riskLevel"`
}

// Evaluate computes the weighted mean of v over w. Only features present in
// both the vector and the weight table take part; a zero total weight scores 0.
func Evaluate(v features.Vector, w WeightTable) Assessment {
	var sum, total float64
	for _, f := range features.All() {
		value, inVector := v[f]
		weight, ok := w[f]
		if !inVector || !ok || weight <= 0 {
			continue
		}
		sum += value * weight
		total += weight
	}

	score := 0.0
	if total > 0 {
		score = sum / total
	}

	return Assessment{
		Score:      score,
		IsPhishing: score > PhishingThreshold,
		Confidence: Confidence(score),
		RiskLevel:  RiskFor(score),
	}
}

// Confidence is the distance of score from the 0.5 midpoint, scaled to [0,0.99]
func Confidence(score float64) float64 {
	return math.Min(math.Abs(score-0.5)*2, 0.99)
}

// RiskFor maps a score to its risk level
func RiskFor(score float64) RiskLevel {
	switch {
	case score < 0.4:
		return RiskLow
	case score < 0.7:
		return RiskMedium
	default:
		return RiskHigh
	}
}
