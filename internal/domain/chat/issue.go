package chat

import (
	"context"
	"fmt"

	"github.com/rentwise/rentwise/internal/infra/llm"
)

const issueFailureReply = "Sorry, I encountered an error analyzing the image(s)."

const issueSystemPrompt = `You are an expert real estate issue detection assistant. Analyze the provided image(s) and the user's query text from the latest message to identify potential property problems (e.g., water damage, mold, cracks).

Provide a clear analysis:
1.  **Identify** visible issues.
2.  **Explain** potential causes.
3.  **Suggest** troubleshooting or professional help.
4.  Ask **clarifying questions** if needed.
Be concise and helpful. Base your analysis on the latest user message and images.`

// IssueDetector answers visual-issue requests with a vision-capable model.
// The full conversation is sent so follow-up questions about an earlier
// analysis keep their context.
type IssueDetector struct {
	models *llm.Router
}

// NewIssueDetector creates an IssueDetector backed by the given provider set.
func NewIssueDetector(models *llm.Router) *IssueDetector {
	return &IssueDetector{models: models}
}

// Analyze produces the assistant reply for a visual-issue turn. On model
// failure it returns a fixed apology as the reply together with the error.
func (d *IssueDetector) Analyze(ctx context.Context, turns []Turn) (string, error) {
	provider, err := d.models.Route(ctx, llm.PurposeVision)
	if err != nil {
		return issueFailureReply, fmt.Errorf("chat: resolve vision model: %w", err)
	}

	messages := append(
		[]llm.Message{llm.TextMessage(llm.RoleSystem, issueSystemPrompt)},
		toLLMMessages(turns)...,
	)
	resp, err := provider.ChatCompletion(ctx, llm.ChatRequest{Messages: messages})
	if err != nil {
		return issueFailureReply, fmt.Errorf("chat: issue analysis completion: %w", err)
	}
	return resp.Content, nil
}

// toLLMMessages converts conversation turns to provider messages, preserving
// text and image parts. Shared by both responder branches.
func toLLMMessages(turns []Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		role := llm.RoleUser
		if turn.Role == RoleAssistant {
			role = llm.RoleAssistant
		}
		parts := make([]llm.ContentPart, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			switch p.Kind {
			case PartImage:
				parts = append(parts, llm.ImagePart(p.MIMEType, p.Data))
			default:
				parts = append(parts, llm.TextPart(p.Text))
			}
		}
		messages = append(messages, llm.Message{Role: role, Parts: parts})
	}
	return messages
}
