package types

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType tags one component of a message body.
type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// Part is one component of a message body: either text or an inline
// image reference.
type Part struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// Message is one turn of an LLM conversation.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// TextMessage builds a single-part text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Type: PartText, Text: text}}}
}

// UserTurn builds a user message from text plus an optional image.
func UserTurn(text, imageURL string) Message {
	m := Message{Role: RoleUser, Parts: []Part{{Type: PartText, Text: text}}}
	if imageURL != "" {
		m.Parts = append(m.Parts, Part{Type: PartImageURL, ImageURL: imageURL})
	}
	return m
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// Image returns the first image part and whether one exists.
func (m Message) Image() (string, bool) {
	for _, p := range m.Parts {
		if p.Type == PartImageURL && p.ImageURL != "" {
			return p.ImageURL, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	parts := make([]Part, len(m.Parts))
	copy(parts, m.Parts)
	return Message{Role: m.Role, Parts: parts}
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
