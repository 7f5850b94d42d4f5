package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rentwise/rentwise/internal/infra/llm"
)

// Decision is the routing outcome for one user message.
type Decision string

// The three possible outcomes. Every handled message resolves to exactly one.
const (
	DecisionVisualIssue Decision = "visual_issue"
	DecisionTenancyFAQ  Decision = "tenancy_faq"
	DecisionClarify     Decision = "clarify"
)

// ErrNoInput is returned when routing is attempted on an empty conversation.
var ErrNoInput = errors.New("chat: conversation has no turns")

// Canned replies used when a branch cannot produce a real answer. The user
// always gets a conversational reply, never a bare error.
const (
	routingFailureReply = "Sorry, I encountered an issue routing your request. Could you please rephrase or specify if it's about a visual issue (with image) or a tenancy question?"
	missingImageReply   = "It looks like you might need help with a visual issue, but you didn't provide an image in your last message. Could you upload one? Or is your question about something else?"
	defaultClarifyReply = "How can I help you further? Please ask a question about a property issue (with an image if needed) or a tenancy topic."
)

// faqKeywords mark a query as tenancy-related even when images are attached,
// so a lease question with an incidental photo still goes to the FAQ branch.
var faqKeywords = []string{
	"lease", "rent", "landlord", "tenant", "deposit",
	"agreement", "eviction", "notice", "law", "rights",
}

// Outcome is the router's verdict: the branch to run, plus the reply text
// when the branch is clarify (the clarify reply comes from the router itself,
// there is no separate clarify responder).
type Outcome struct {
	Decision Decision
	Reply    string
}

// Router classifies the latest user turn against the whole conversation.
// The model's verdict is advisory: deterministic overrides correct it when
// it contradicts what is actually in the message (images present or absent).
type Router struct {
	models *llm.Router
}

// NewRouter creates a Router backed by the given provider set.
func NewRouter(models *llm.Router) *Router {
	return &Router{models: models}
}

// routerClassification is the structured output requested from the model.
type routerClassification struct {
	Decision             string `json:"decision"`
	ClarificationMessage string `json:"clarification_message"`
}

var routerSchema = &llm.ResponseSchema{
	Name: "routing_decision",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"decision": map[string]any{
				"type": "string",
				"enum": []string{string(DecisionVisualIssue), string(DecisionTenancyFAQ), string(DecisionClarify)},
			},
			"clarification_message": map[string]any{
				"type": []string{"string", "null"},
			},
		},
		"required":             []string{"decision", "clarification_message"},
		"additionalProperties": false,
	},
}

// Route classifies the latest turn of the conversation. On any model failure
// it returns a usable clarify Outcome together with the underlying error, so
// the caller can reply to the user and still record what went wrong.
func (r *Router) Route(ctx context.Context, turns []Turn) (Outcome, error) {
	if len(turns) == 0 {
		return Outcome{}, ErrNoInput
	}

	last := turns[len(turns)-1]
	hasImages := last.HasImages()

	provider, err := r.models.Route(ctx, llm.PurposeRouter)
	if err != nil {
		return Outcome{Decision: DecisionClarify, Reply: routingFailureReply},
			fmt.Errorf("chat: resolve router model: %w", err)
	}

	prompt := routerPrompt(Transcript(turns), hasImages)
	resp, err := provider.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{llm.TextMessage(llm.RoleSystem, prompt)},
		Schema:   routerSchema,
	})
	if err != nil {
		return Outcome{Decision: DecisionClarify, Reply: routingFailureReply},
			fmt.Errorf("chat: routing completion: %w", err)
	}

	var cls routerClassification
	if err := json.Unmarshal([]byte(resp.Content), &cls); err != nil {
		return Outcome{Decision: DecisionClarify, Reply: routingFailureReply},
			fmt.Errorf("chat: parse routing output %q: %w", resp.Content, err)
	}

	decision := Decision(cls.Decision)
	switch decision {
	case DecisionVisualIssue, DecisionTenancyFAQ, DecisionClarify:
	default:
		return Outcome{Decision: DecisionClarify, Reply: routingFailureReply},
			fmt.Errorf("chat: unexpected routing decision %q", cls.Decision)
	}

	return applyOverrides(decision, cls.ClarificationMessage, last.Text(), hasImages), nil
}

// applyOverrides corrects the model's verdict against the observable facts of
// the latest message. The model never gets the final word on image presence.
func applyOverrides(decision Decision, clarification, lastQuery string, hasImages bool) Outcome {
	switch {
	case hasImages && decision == DecisionTenancyFAQ && !hasFAQKeyword(lastQuery):
		// Images attached and nothing in the text anchors it to tenancy:
		// the user is asking about what is in the picture.
		return Outcome{Decision: DecisionVisualIssue}

	case !hasImages && decision == DecisionVisualIssue:
		// Visual analysis without an image cannot run.
		if clarification == "" {
			clarification = missingImageReply
		}
		return Outcome{Decision: DecisionClarify, Reply: clarification}

	case decision == DecisionClarify && clarification == "":
		return Outcome{Decision: DecisionClarify, Reply: defaultClarifyReply}
	}

	if decision != DecisionClarify {
		clarification = ""
	}
	return Outcome{Decision: decision, Reply: clarification}
}

func hasFAQKeyword(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range faqKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func routerPrompt(history string, hasImages bool) string {
	imagesLine := "No"
	if hasImages {
		imagesLine = "Yes"
	}
	return fmt.Sprintf(`You are an expert router for a real estate assistant chatbot. Classify the user's *latest* request based on the conversation history provided.

Available outcomes:
1.  **visual_issue**: Visual inspection of a property problem. Requires images *in the latest message*. Choose 'visual_issue' if images are present in the last message AND the query concerns a visual aspect.
2.  **tenancy_faq**: Text-only tenancy questions (laws, agreements, rent, deposits, eviction etc.). Choose 'tenancy_faq' if the latest query is about these topics and no relevant images are present in the last message.
3.  **clarify**: Simple conversation, greetings, remembering previous context, or asking for more details. Choose 'clarify' if unsure, if more info is needed (e.g., location), for simple chat (like remembering a name based on history), or if the request fits neither of the other outcomes. Be friendly and act as an assistant.

Conversation History:
--- START HISTORY ---
%s
--- END HISTORY ---

Images provided in the *latest* user message: %s

Based on the *latest* user request within the context of the history, respond with:
{
  "decision": "'visual_issue' | 'tenancy_faq' | 'clarify'",
  "clarification_message": "string | null"
}
ONLY provide clarification_message if the decision is 'clarify' AND you need to ask the user something OR provide a conversational reply. If you remember something (like a name) make the decision 'clarify' and set clarification_message to the answer.`, history, imagesLine)
}
