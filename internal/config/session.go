package config

import "time"

// SessionConfig configures session lifecycle behavior.
type SessionConfig struct {
	// ReviewMaxTurns bounds user turns in a Review session.
	// -1 means unbounded.
	ReviewMaxTurns int `yaml:"review_max_turns"`

	// NotifyDismissDelay is the UI auto-dismiss hint for notifications.
	NotifyDismissDelay string `yaml:"notify_dismiss_delay"`

	// FinalizeDelay is how long a Notify session waits before the
	// read-gated auto-finalize check.
	FinalizeDelay string `yaml:"finalize_delay"`
}

// DismissDelay returns the auto-dismiss hint, defaulting to 10s.
func (c SessionConfig) DismissDelay() time.Duration {
	return parseDuration(c.NotifyDismissDelay, 10*time.Second)
}

// AutoFinalizeDelay returns the finalize check delay, defaulting to 3s.
func (c SessionConfig) AutoFinalizeDelay() time.Duration {
	return parseDuration(c.FinalizeDelay, 3*time.Second)
}
