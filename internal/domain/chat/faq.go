package chat

import (
	"context"
	"fmt"

	"github.com/rentwise/rentwise/internal/infra/llm"
)

const faqFailureReply = "Sorry, I encountered an error answering your question."

const faqQueryPreviewLimit = 200

// FAQAgent answers text-only tenancy questions.
type FAQAgent struct {
	models *llm.Router
}

// NewFAQAgent creates a FAQAgent backed by the given provider set.
func NewFAQAgent(models *llm.Router) *FAQAgent {
	return &FAQAgent{models: models}
}

// Answer produces the assistant reply for a tenancy question. On model
// failure it returns a fixed apology as the reply together with the error.
func (a *FAQAgent) Answer(ctx context.Context, turns []Turn) (string, error) {
	provider, err := a.models.Route(ctx, llm.PurposeFAQ)
	if err != nil {
		return faqFailureReply, fmt.Errorf("chat: resolve faq model: %w", err)
	}

	var latestQuery string
	if len(turns) > 0 {
		latestQuery = turns[len(turns)-1].Text()
	}

	messages := append(
		[]llm.Message{llm.TextMessage(llm.RoleSystem, faqSystemPrompt(latestQuery))},
		toLLMMessages(turns)...,
	)
	resp, err := provider.ChatCompletion(ctx, llm.ChatRequest{Messages: messages})
	if err != nil {
		return faqFailureReply, fmt.Errorf("chat: faq completion: %w", err)
	}
	return resp.Content, nil
}

func faqSystemPrompt(latestQuery string) string {
	preview := []rune(latestQuery)
	if len(preview) > faqQueryPreviewLimit {
		preview = preview[:faqQueryPreviewLimit]
	}
	return fmt.Sprintf(`You are a helpful assistant knowledgeable about general real estate tenancy topics (laws, agreements, rent, deposits, eviction etc.). Answer the user's question from their latest message.

Provide clear, concise information based on common practices.
**Important**: If the question needs specific legal advice or depends on local regulations, state your answer is general and advise the user to mention their location or consult a local expert/organization. Do not invent local laws.

Focus on the latest user query text: '%s...'`, string(preview))
}
