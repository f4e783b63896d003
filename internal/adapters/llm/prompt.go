package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/utils"
)

// SystemPrompt is sent as the system role where a provider supports one
const SystemPrompt = "You are a phishing detection system. Respond only with JSON."

const promptFormat = `You are a phishing detection system. Analyze the following web address and determine if it is a phishing or otherwise malicious site.
Respond with a JSON object containing:
- isPhishing: boolean (true if phishing, false if not)
- threatLevel: one of "Low", "Medium" or "High"
- score: number between 0 and 1 (higher means more likely to be phishing)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanations: array of short strings explaining the assessment

Address:
%s
%s
Respond only with the JSON object and nothing else.`

// BuildPrompt formats the scoring prompt for an address and its optional
// page signals. The address is truncated to maxAddressSize bytes.
func BuildPrompt(address string, signals *features.ContentSignals, maxAddressSize int, tp *utils.TextProcessor) string {
	processed := tp.ProcessText(address, maxAddressSize)

	var page strings.Builder
	if signals != nil {
		page.WriteString("\nPage signals:\n")
		fmt.Fprintf(&page, "- password field present: %t\n", signals.HasPasswordField)
		fmt.Fprintf(&page, "- sensitive keywords present: %t\n", signals.HasSensitiveKeywords)
		fmt.Fprintf(&page, "- served over a secure scheme: %t\n", signals.IsSecureScheme)
		fmt.Fprintf(&page, "- certificate issues: %t\n", signals.HasCertificateIssues)
		if signals.FormActionAddress != "" {
			fmt.Fprintf(&page, "- form submits to: %s\n", tp.ProcessText(signals.FormActionAddress, maxAddressSize))
		}
	}

	return fmt.Sprintf(promptFormat, processed, page.String())
}

// Response is the JSON object the model is asked to produce
type Response struct {
	IsPhishing   *bool    `json:"isPhishing"`
	ThreatLevel  string   `json:"threatLevel"`
	Score        *float64 `json:"score"`
	Confidence   float64  `json:"confidence"`
	Explanations []string `json:"explanations"`
}

// ParseResponse extracts the JSON object from a model reply. Models often wrap
// the object in prose or code fences, so the outermost braces are tried when
// the reply as a whole does not parse.
func ParseResponse(text string) (*Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}

	if resp.IsPhishing == nil || resp.Score == nil || resp.ThreatLevel == "" {
		return nil, fmt.Errorf("LLM response is missing required fields")
	}
	return &resp, nil
}
