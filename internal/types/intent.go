package types

// Level is the interaction mode a session runs in.
type Level string

const (
	// LevelNotify is a zero-turn notification: the system presents a
	// result and the user does not respond.
	LevelNotify Level = "Notify"

	// LevelReview is an open multi-turn dialogue.
	LevelReview Level = "Review"
)

// Valid reports whether l is a recognized interaction level.
func (l Level) Valid() bool {
	return l == LevelNotify || l == LevelReview
}

// Intent is a resolved user goal derived from a Signal.
//
// Lifecycle: created by the Detector with Level unset; Level is
// assigned exactly once by the Classifier; consumed by the ReactAgent
// and the Formatter within the same processing pass.
type Intent struct {
	// Target is a short natural-language description of the goal.
	Target string

	// Source is copied from the originating Signal.
	Source string

	// Context is the Signal payload the goal was derived from.
	Context Content

	// Level is the interaction mode. Single writer: the Classifier.
	Level Level

	// Metadata is shared with the originating Signal so intent and
	// signal keep the same identity and timestamp.
	Metadata Metadata
}
