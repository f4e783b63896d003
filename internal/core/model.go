package core

import (
	"strings"
	"time"

	"github.com/mikey/phishguard/internal/explain"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/scoring"
)

// Verdict sources
const (
	SourceRemote    = "remote"
	SourceFallback  = "fallback"
	SourceWhitelist = "whitelist"
)

// Verdict is the decision record for an address
type Verdict struct {
	Address      string                `json:"address"`
	IsThreat     bool                  `json:"isThreat"`
	RiskLevel    scoring.RiskLevel     `json:"riskLevel"`
	Score        float64               `json:"score"`
	Confidence   float64               `json:"confidence"`
	ModelScore   float64               `json:"modelScore"`
	Source       string                `json:"source"`
	ScanID       string                `json:"scanId,omitempty"`
	ScannedAt    time.Time             `json:"timestamp"`
	Explanations []explain.Attribution `json:"explanations"`
	Reasons      []string              `json:"reasons,omitempty"`
	Highlights   []explain.Highlight   `json:"highlights,omitempty"`
	Features     features.Vector       `json:"features,omitempty"`
}

// RemoteResult is what a remote scorer reports for an address
type RemoteResult struct {
	IsPhishing   bool
	ThreatLevel  scoring.RiskLevel
	Score        float64
	Confidence   float64
	Explanations []string
	ModelUsed    string
}

// Feedback is a user's judgement of a recorded verdict
type Feedback struct {
	ID        string    `json:"feedbackId"`
	Address   string    `json:"url"`
	ScanID    string    `json:"scanId,omitempty"`
	WasThreat bool      `json:"wasThreat"`
	IsCorrect bool      `json:"isCorrect"`
	Comments  string    `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats are the aggregate scan counters
type Stats struct {
	SafeCount   int64 `json:"safeCount"`
	ThreatCount int64 `json:"threatCount"`
	TotalScans  int64 `json:"totalScans"`
}

// ScanState is the pipeline state of an address
type ScanState string

const (
	StateUnknown  ScanState = "Unknown"
	StateScanning ScanState = "Scanning"
	StateSafe     ScanState = "Safe"
	StateThreat   ScanState = "Threat"
)

// ScanEvent is emitted on every pipeline state transition
type ScanEvent struct {
	Address string
	State   ScanState
	Verdict *Verdict
}

// NotificationLevel controls whether threats are announced
type NotificationLevel string

const (
	NotifyAll  NotificationLevel = "all"
	NotifyNone NotificationLevel = "none"
)

// ParseNotificationLevel converts a config string into a NotificationLevel.
// Anything other than "none" notifies.
func ParseNotificationLevel(s string) NotificationLevel {
	if NotificationLevel(strings.ToLower(strings.TrimSpace(s))) == NotifyNone {
		return NotifyNone
	}
	return NotifyAll
}

// Permits reports whether a threat verdict should be announced at this
// level: every recorded threat is, unless the level is none
func (l NotificationLevel) Permits(v *Verdict) bool {
	return v != nil && v.IsThreat && l != NotifyNone
}
