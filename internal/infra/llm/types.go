// Package llm defines the model-agnostic completion-capability abstraction.
// All types here are shared between the provider interface and adapters.
package llm

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part kinds.
const (
	PartText  = "text"
	PartImage = "image"
)

// ContentPart is one piece of a message: either text or an inline image.
type ContentPart struct {
	Type     string // PartText | PartImage
	Text     string // set when Type == PartText
	MIMEType string // set when Type == PartImage, e.g. "image/jpeg"
	Data     []byte // raw image bytes when Type == PartImage
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart builds an inline image content part.
func ImagePart(mimeType string, data []byte) ContentPart {
	return ContentPart{Type: PartImage, MIMEType: mimeType, Data: data}
}

// Message represents a single turn sent to the completion capability.
type Message struct {
	Role  string
	Parts []ContentPart
}

// TextMessage builds a single-part text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Parts: []ContentPart{TextPart(text)}}
}

// ResponseSchema requests a structured (JSON) completion shaped by a JSON
// schema instead of free text. Absence or malformation of the requested
// fields in the reply is a provider failure, not a fourth outcome.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// Schema, when non-nil, constrains the output to the given JSON schema.
	Schema *ResponseSchema
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content    string // The assistant message text (JSON when a Schema was requested).
	StopReason string // "stop" | "length" | "error"
	Tokens     int    // Total tokens consumed (prompt + completion).
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID       string // e.g. "gpt-4o"
	Provider string // e.g. "openai"
	Version  string
}
