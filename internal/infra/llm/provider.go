// LLMProvider interface. Adapters implement this interface so the
// application is never coupled to a specific LLM vendor.
package llm

import "context"

// LLMProvider is the model-agnostic interface for completion operations.
type LLMProvider interface {
	// ChatCompletion performs a non-streaming chat completion.
	// When req.Schema is set the Content of the response is the structured
	// JSON document; decoding it is the caller's concern.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
