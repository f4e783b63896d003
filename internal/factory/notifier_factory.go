package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/notify"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

// NotifierFactory creates the threat notification channel
type NotifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *NotifierFactory {
	return &NotifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateNotifier creates the configured notifier
func (f *NotifierFactory) CreateNotifier() (core.Notifier, error) {
	notifyCfg, err := f.cfg.GetNotifications()
	if err != nil {
		return nil, err
	}

	switch notifyCfg.Channel {
	case "log", "":
		return notify.NewLogNotifier(f.logger, f.textProcessor), nil
	case "smtp":
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:          notifyCfg.SMTP.Host,
			Port:          notifyCfg.SMTP.Port,
			From:          notifyCfg.SMTP.From,
			To:            notifyCfg.SMTP.To,
			SubjectPrefix: notifyCfg.SMTP.SubjectPrefix,
			Timeout:       notifyCfg.SMTP.Timeout,
		}, f.logger, f.textProcessor)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported notification channel: %s", notifyCfg.Channel)
	}
}
