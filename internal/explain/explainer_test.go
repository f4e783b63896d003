package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/scoring"
)

func sumPercent(attributions []Attribution) float64 {
	var total float64
	for _, a := range attributions {
		total += a.Percent
	}
	return total
}

func TestExplainZeroVector(t *testing.T) {
	out := Explain(features.NewVector(), scoring.DefaultWeights())
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Empty(t, Highlights(out))
	assert.Empty(t, TopReasons(out, 5))
}

func TestExplainPercentagesSumToHundred(t *testing.T) {
	v := features.NewVector()
	v[features.HasIPAddress] = 1
	v[features.IsNotHTTPS] = 1
	v[features.HasHyphens] = 0.5
	v[features.HasPasswordField] = 1

	out := Explain(v, scoring.DefaultWeights())
	require.Len(t, out, 4)
	assert.InDelta(t, 100, sumPercent(out), 1e-9)

	// Ranked by contribution
	assert.Equal(t, features.HasIPAddress, out[0].Feature)
	assert.Equal(t, features.IsNotHTTPS, out[1].Feature)
	assert.Equal(t, features.HasPasswordField, out[2].Feature)
	assert.Equal(t, features.HasHyphens, out[3].Feature)
	assert.InDelta(t, 0.3, out[3].Contribution, 1e-9)
	assert.Equal(t, "Use of IP address in URL", out[0].Description)
}

func TestExplainTiesKeepDeclarationOrder(t *testing.T) {
	v := features.Vector{
		features.IsNotHTTPS:       1,
		features.HasAtSymbol:      1,
		features.HasPasswordField: 1,
	}
	w := scoring.WeightTable{
		features.IsNotHTTPS:       0.5,
		features.HasAtSymbol:      0.5,
		features.HasPasswordField: 0.5,
	}

	out := Explain(v, w)
	require.Len(t, out, 3)
	assert.Equal(t, features.HasAtSymbol, out[0].Feature)
	assert.Equal(t, features.HasPasswordField, out[1].Feature)
	assert.Equal(t, features.IsNotHTTPS, out[2].Feature)
	for _, a := range out {
		assert.InDelta(t, 100.0/3, a.Percent, 1e-9)
	}
}

func TestExplainSkipsZeroWeights(t *testing.T) {
	v := features.Vector{features.HasIPAddress: 1, features.IsNotHTTPS: 1}
	w := scoring.WeightTable{features.HasIPAddress: 0, features.IsNotHTTPS: 0.5}

	out := Explain(v, w)
	require.Len(t, out, 1)
	assert.Equal(t, features.IsNotHTTPS, out[0].Feature)
	assert.InDelta(t, 100, out[0].Percent, 1e-9)
}

func TestHighlightsUseTopThree(t *testing.T) {
	v := features.NewVector()
	v[features.MismatchedFormAction] = 1
	v[features.HasIPAddress] = 1
	v[features.HasCertificateIssues] = 1
	v[features.HasPasswordField] = 1

	out := Explain(v, scoring.DefaultWeights())
	require.Len(t, out, 4)

	hs := Highlights(out)
	elements := make([]features.Feature, 0, len(hs))
	for _, h := range hs {
		elements = append(elements, h.Feature)
	}
	// Certificate issues has no hint and the password field is fourth
	assert.Equal(t, []features.Feature{features.HasIPAddress, features.MismatchedFormAction}, elements)
}

func TestTopReasons(t *testing.T) {
	v := features.Vector{features.HasIPAddress: 1, features.IsNotHTTPS: 1}
	out := Explain(v, scoring.DefaultWeights())

	reasons := TopReasons(out, 1)
	require.Len(t, reasons, 1)
	assert.Equal(t, Reason(features.HasIPAddress), reasons[0])
	assert.Len(t, TopReasons(out, 10), 2)
}

func TestDescribeUnknown(t *testing.T) {
	assert.Equal(t, "pageRank", Describe("pageRank"))
	assert.Equal(t, "pageRank", Reason("pageRank"))
	for _, f := range features.All() {
		assert.NotEqual(t, string(f), Describe(f), f)
	}
}
