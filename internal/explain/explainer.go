package explain

import (
	"sort"

	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/scoring"
)

// hintDepth is how many of the top attributions are mapped to highlight hints
const hintDepth = 3

// Attribution is a single feature's share of the weighted score
type Attribution struct {
	Feature      features.Feature `json:"feature"`
	Description  string           `json:"description"`
	Value        float64          `json:"value"`
	Contribution float64          `json:"contribution"`
	Percent      float64          `json:"attribution"`
}

// Highlight is a hint describing a page element worth pointing out to the user
type Highlight struct {
	Feature     features.Feature `json:"feature"`
	Element     string           `json:"element"`
	Description string           `json:"description"`
}

// Explain ranks the positive contributions of v under w. Percentages sum to
// 100 when at least one feature contributes and the result is empty otherwise.
func Explain(v features.Vector, w scoring.WeightTable) []Attribution {
	out := make([]Attribution, 0)
	var total float64

	// Walk in declaration order so the stable sort keeps it for ties
	for _, f := range features.All() {
		value := v[f]
		if value <= 0 {
			continue
		}
		contribution := value * w[f]
		if contribution <= 0 {
			continue
		}
		total += contribution
		out = append(out, Attribution{
			Feature:      f,
			Description:  Describe(f),
			Value:        value,
			Contribution: contribution,
		})
	}

	if total == 0 {
		return out
	}

	for i := range out {
		out[i].Percent = 100 * out[i].Contribution / total
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Contribution > out[j].Contribution
	})

	return out
}

// Highlights maps the top attributions to zero or more highlight hints.
// Not every feature has a hint.
func Highlights(attributions []Attribution) []Highlight {
	out := make([]Highlight, 0)
	n := len(attributions)
	if n > hintDepth {
		n = hintDepth
	}
	for _, a := range attributions[:n] {
		out = append(out, hints[a.Feature]...)
	}
	return out
}

// TopReasons returns the descriptions of the top n attributions
func TopReasons(attributions []Attribution, n int) []string {
	if n > len(attributions) {
		n = len(attributions)
	}
	reasons := make([]string, 0, n)
	for _, a := range attributions[:n] {
		reasons = append(reasons, Reason(a.Feature))
	}
	return reasons
}
