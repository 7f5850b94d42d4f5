// LLM provider router. The service binds three logical completion
// instances (request classification, image analysis, FAQ answering)
// that may point at different models or different backends entirely.
package llm

import (
	"context"
	"fmt"
)

// Well-known provider purposes.
const (
	PurposeRouter = "router"
	PurposeVision = "vision"
	PurposeFAQ    = "faq"
)

// Router selects an LLMProvider by purpose for each request.
type Router struct {
	providers      map[string]LLMProvider
	defaultPurpose string
}

// NewRouter creates a Router with an initial set of providers and a default key.
func NewRouter(providers map[string]LLMProvider, defaultPurpose string) *Router {
	// defensive copy so the caller cannot mutate the internal map.
	ps := make(map[string]LLMProvider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps, defaultPurpose: defaultPurpose}
}

// Register adds (or replaces) a provider under the given purpose.
// Useful for dynamic reconfiguration or tests.
func (r *Router) Register(purpose string, p LLMProvider) {
	r.providers[purpose] = p
}

// Route returns the provider bound to purpose, falling back to the default
// when purpose is empty. Returns an error if nothing is registered under
// the resolved key.
func (r *Router) Route(_ context.Context, purpose string) (LLMProvider, error) {
	if purpose == "" {
		purpose = r.defaultPurpose
	}
	p, ok := r.providers[purpose]
	if !ok {
		return nil, fmt.Errorf("llm router: provider %q not registered (available: %v)", purpose, r.keys())
	}
	return p, nil
}

// keys returns the registered provider names (for error messages).
func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	return out
}
