package scoring

import (
	"fmt"
	"strings"

	"github.com/mikey/phishguard/internal/features"
)

// WeightTable maps features to weights in [0,1]
type WeightTable map[features.Feature]float64

var defaultWeights = WeightTable{
	features.HasIPAddress:         0.95,
	features.URLLength:            0.5,
	features.HasAtSymbol:          0.8,
	features.HasManySubdomains:    0.8,
	features.HasSuspiciousTLD:     0.9,
	features.HasHyphens:           0.6,
	features.HasPasswordField:     0.8,
	features.HasSensitiveKeywords: 0.7,
	features.MismatchedFormAction: 0.95,
	features.IsNotHTTPS:           0.85,
	features.HasCertificateIssues: 0.9,
}

// DefaultWeights returns a copy of the deployment default weight table
func DefaultWeights() WeightTable {
	w := make(WeightTable, len(defaultWeights))
	for f, weight := range defaultWeights {
		w[f] = weight
	}
	return w
}

// WithOverrides returns a copy of w with the given per-feature weights applied.
// Names match case-insensitively since viper lower-cases map keys. Unknown
// feature names are rejected; weights are clamped to [0,1].
func (w WeightTable) WithOverrides(overrides map[string]float64) (WeightTable, error) {
	out := make(WeightTable, len(w))
	for f, weight := range w {
		out[f] = weight
	}

	byName := make(map[string]features.Feature)
	for _, f := range features.All() {
		byName[strings.ToLower(string(f))] = f
	}

	for name, weight := range overrides {
		f, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown feature in weight table: %s", name)
		}
		out[f] = clamp(weight)
	}
	return out, nil
}

func clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
