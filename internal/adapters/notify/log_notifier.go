package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

// DisplayAddressLength is how many characters of an address a notification shows
const DisplayAddressLength = 50

// LogNotifier announces threats through the application log
type LogNotifier struct {
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *zap.Logger, tp *utils.TextProcessor) *LogNotifier {
	return &LogNotifier{logger: logger, textProcessor: tp}
}

// NotifyThreat implements core.Notifier
func (n *LogNotifier) NotifyThreat(_ context.Context, verdict *core.Verdict) error {
	n.logger.Warn("Threat detected",
		zap.String("address", n.textProcessor.ShortenAddress(verdict.Address, DisplayAddressLength)),
		zap.String("risk_level", string(verdict.RiskLevel)),
		zap.Float64("score", verdict.Score),
		zap.Strings("reasons", verdict.Reasons))
	return nil
}
