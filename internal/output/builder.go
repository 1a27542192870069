package output

import (
	"contextos/internal/config"
	"contextos/internal/logging"
	"contextos/internal/types"
)

// SessionBuilder creates sessions from formatted content, applying the
// level-derived turn budget and UI hints.
type SessionBuilder struct {
	cfg config.SessionConfig
}

// NewSessionBuilder creates a SessionBuilder.
func NewSessionBuilder(cfg config.SessionConfig) *SessionBuilder {
	return &SessionBuilder{cfg: cfg}
}

// Build assembles a pending session.
func (b *SessionBuilder) Build(content *Formatted) (*types.Session, error) {
	log := logging.Get(logging.CategorySession)

	session, err := types.NewSession(content.Level, content.Title, content.Messages, content.MessagesToUser)
	if err != nil {
		return nil, err
	}

	session.Config = b.sessionConfig(content.Level)
	session.UI = b.uiConfig(content.Level)
	session.Metadata.IntentUUID = content.IntentUUID
	session.Metadata.Source = content.Source
	session.Metadata.IntentContext = content.IntentContext

	log.Infow("session built",
		"session", session.Metadata.UUID,
		"level", session.Level,
		"title", session.Title)
	return session, nil
}

// sessionConfig sets the turn budget: Notify sessions never continue,
// Review sessions use the configured budget. An unrecognized level is
// treated as Notify.
func (b *SessionBuilder) sessionConfig(level types.Level) types.SessionConfig {
	cfg := types.SessionConfig{Level: level}
	switch level {
	case types.LevelReview:
		cfg.MaxTurns = b.cfg.ReviewMaxTurns
	case types.LevelNotify:
		cfg.MaxTurns = 0
	default:
		logging.Get(logging.CategorySession).Warnw("unknown level, treating as Notify", "level", level)
		cfg.MaxTurns = 0
	}
	return cfg
}

func (b *SessionBuilder) uiConfig(level types.Level) types.UIConfig {
	ui := types.UIConfig{Level: level}
	switch level {
	case types.LevelReview:
		ui.ShowInput = true
		ui.ShowHistory = true
		ui.Style = "dialog"
	default:
		ui.AutoDismiss = true
		ui.DismissDelay = b.cfg.DismissDelay()
		ui.Style = "notification"
	}
	return ui
}
