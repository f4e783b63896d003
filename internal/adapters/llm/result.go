package llm

import (
	"fmt"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/scoring"
)

// ToResult converts a model reply into a remote result. Any reply that cannot
// be parsed is reported as core.ErrInvalidResponse so the scan falls back.
func ToResult(text, model string) (*core.RemoteResult, error) {
	resp, err := ParseResponse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidResponse, err)
	}

	level, ok := scoring.ParseRiskLevel(resp.ThreatLevel)
	if !ok {
		return nil, fmt.Errorf("%w: unknown threat level %q", core.ErrInvalidResponse, resp.ThreatLevel)
	}

	return &core.RemoteResult{
		IsPhishing:   *resp.IsPhishing,
		ThreatLevel:  level,
		Score:        *resp.Score,
		Confidence:   resp.Confidence,
		Explanations: resp.Explanations,
		ModelUsed:    model,
	}, nil
}
