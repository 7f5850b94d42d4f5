// Package chat provides the conversation model and the routing/dispatch core:
// a router that classifies the latest user turn, two specialized responders
// (visual issue analysis and tenancy FAQ), and the dispatcher that runs
// exactly one of them per request.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part kinds.
const (
	PartText  = "text"
	PartImage = "image"
)

// Part is one piece of a turn's content: text or an inline image.
type Part struct {
	Kind     string `json:"kind"` // PartText | PartImage
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"` // raw image bytes; base64 in JSON
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart builds an image part.
func ImagePart(mimeType string, data []byte) Part {
	return Part{Kind: PartImage, MIMEType: mimeType, Data: data}
}

// Turn is one message in a conversation. Parts is never empty for turns
// built through the constructors below.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTurn builds a turn with a fresh ID. A turn with no parts is not a valid
// conversation entry, so an empty parts slice gets a single empty text part.
func NewTurn(role string, parts ...Part) Turn {
	if len(parts) == 0 {
		parts = []Part{TextPart("")}
	}
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Parts:     parts,
		CreatedAt: time.Now().UTC(),
	}
}

// AssistantText builds a single-part assistant turn.
func AssistantText(text string) Turn {
	return NewTurn(RoleAssistant, TextPart(text))
}

// Text returns the concatenated text parts of the turn.
func (t Turn) Text() string {
	var b strings.Builder
	for _, p := range t.Parts {
		if p.Kind != PartText {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// HasImages reports whether the turn contains at least one image part.
func (t Turn) HasImages() bool {
	for _, p := range t.Parts {
		if p.Kind == PartImage {
			return true
		}
	}
	return false
}

// Transcript renders turns as role-prefixed lines, the shape embedded in the
// routing prompt.
func Transcript(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		prefix := "User"
		if t.Role == RoleAssistant {
			prefix = "Assistant"
		}
		lines = append(lines, prefix+": "+t.Text())
	}
	return strings.Join(lines, "\n")
}
