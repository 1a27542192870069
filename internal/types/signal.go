// Package types defines the core data model: Signal, Intent, Session
// and the message transcript shared between the engine and the
// presentation layer.
package types

import (
	"time"

	"github.com/google/uuid"
)

// SignalType distinguishes one-shot events from sampled streams.
type SignalType string

const (
	// SignalEvent is a discrete occurrence (clipboard change, file drop).
	SignalEvent SignalType = "event"

	// SignalStream is one sample of a continuous source (screenshot poll).
	SignalStream SignalType = "stream"
)

// ContentType tags the payload union carried by a Signal.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentImage      ContentType = "image"
	ContentMultimodal ContentType = "multimodal"
)

// Content is the tagged payload union. Text holds the textual part,
// Image holds a URL or data URI. Multimodal carries both.
type Content struct {
	Type  ContentType `yaml:"type" json:"type"`
	Text  string      `yaml:"text,omitempty" json:"text,omitempty"`
	Image string      `yaml:"image,omitempty" json:"image,omitempty"`
}

// TextContent builds a text-only payload.
func TextContent(text string) Content {
	return Content{Type: ContentText, Text: text}
}

// ImageContent builds an image-only payload.
func ImageContent(url string) Content {
	return Content{Type: ContentImage, Image: url}
}

// MultimodalContent builds a combined text+image payload.
func MultimodalContent(text, url string) Content {
	return Content{Type: ContentMultimodal, Text: text, Image: url}
}

// TextPart returns the textual component, or placeholder if the
// payload has none.
func (c Content) TextPart(placeholder string) string {
	switch c.Type {
	case ContentText, ContentMultimodal:
		return c.Text
	default:
		return placeholder
	}
}

// ImagePart returns the image component and whether one is present.
func (c Content) ImagePart() (string, bool) {
	switch c.Type {
	case ContentImage, ContentMultimodal:
		return c.Image, c.Image != ""
	default:
		return "", false
	}
}

// Metadata carries the identity assigned when a value enters the
// system. Immutable once assigned; an Intent shares its originating
// Signal's Metadata so the two stay correlated.
type Metadata struct {
	UUID      string    `yaml:"uuid" json:"uuid"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// NewMetadata assigns a fresh UUID and the current time.
func NewMetadata() Metadata {
	return Metadata{
		UUID:      uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// Signal is one unit of raw sensed activity produced by an adapter.
// Read-only after creation; discarded after being consumed from the
// queue.
type Signal struct {
	Source   string     `yaml:"source" json:"source"`
	Type     SignalType `yaml:"type" json:"type"`
	Content  Content    `yaml:"content" json:"content"`
	Metadata Metadata   `yaml:"metadata" json:"metadata"`
}

// NewSignal creates a Signal with freshly assigned metadata.
func NewSignal(source string, typ SignalType, content Content) Signal {
	return Signal{
		Source:   source,
		Type:     typ,
		Content:  content,
		Metadata: NewMetadata(),
	}
}
