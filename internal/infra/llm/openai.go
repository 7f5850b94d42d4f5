// OpenAI-compatible HTTP adapter. OpenAIProvider calls any endpoint that
// speaks the OpenAI chat API (api.openai.com, LiteLLM, vLLM, ...) using
// stdlib net/http. Endpoints used:
//   - POST /v1/chat/completions (non-streaming chat completion)
//   - GET  /v1/models           (health check)
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
	headerAuth        = "Authorization"
)

// OpenAIProvider implements LLMProvider against an OpenAI-compatible API.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAIProvider with the given request timeout.
// A timed-out call surfaces as an error; nothing is retried here.
func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ===== internal OpenAI JSON types =====

// openAIContentPart is one element of a multimodal content array.
type openAIContentPart struct {
	Type     string          `json:"type"` // "text" | "image_url"
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

// openAIMessage carries either a plain string or a content-part array.
// Content is any so text-only messages serialize as a string, which every
// OpenAI-compatible backend accepts.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any  `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   *openAIUsage   `json:"usage,omitempty"`
}

type openAIChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type openAIUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type openAIErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ===== LLMProvider implementation =====

// ChatCompletion performs a non-streaming chat via POST /v1/chat/completions.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(buildOpenAIRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("openai chat: marshal request: %w", err)
	}

	respBody, postErr := p.doPost(ctx, "/v1/chat/completions", body)
	if postErr != nil {
		return nil, postErr
	}
	defer respBody.Close()

	var apiResp openAIChatResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&apiResp); decodeErr != nil {
		return nil, fmt.Errorf("openai chat: decode response: %w", decodeErr)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: response contains no choices")
	}

	out := &ChatResponse{
		Content:    apiResp.Choices[0].Message.Content,
		StopReason: apiResp.Choices[0].FinishReason,
	}
	if apiResp.Usage != nil {
		out.Tokens = apiResp.Usage.TotalTokens
	}
	return out, nil
}

// buildOpenAIRequest converts a ChatRequest into the wire shape.
func buildOpenAIRequest(model string, req ChatRequest) openAIChatRequest {
	out := openAIChatRequest{
		Model:    model,
		Messages: make([]openAIMessage, len(req.Messages)),
	}
	for i, m := range req.Messages {
		out.Messages[i] = openAIMessage{Role: m.Role, Content: encodeContent(m.Parts)}
	}
	if req.Temperature != 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	if req.MaxTokens != 0 {
		n := req.MaxTokens
		out.MaxTokens = &n
	}
	if req.Schema != nil {
		out.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.Schema.Name,
				"schema": req.Schema.Schema,
				"strict": true,
			},
		}
	}
	return out
}

// encodeContent renders message parts as either a plain string (text-only)
// or a multimodal content array with data-URI image parts.
func encodeContent(parts []ContentPart) any {
	if isTextOnly(parts) {
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			texts = append(texts, part.Text)
		}
		return strings.Join(texts, "\n")
	}

	out := make([]openAIContentPart, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case PartText:
			out = append(out, openAIContentPart{Type: "text", Text: part.Text})
		case PartImage:
			uri := fmt.Sprintf("data:%s;base64,%s", part.MIMEType, base64.StdEncoding.EncodeToString(part.Data))
			out = append(out, openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: uri}})
		}
	}
	return out
}

func isTextOnly(parts []ContentPart) bool {
	for _, part := range parts {
		if part.Type != PartText {
			return false
		}
	}
	return true
}

// ModelInfo returns static metadata for this provider/model.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:       p.model,
		Provider: "openai",
		Version:  "v1",
	}
}

// HealthCheck calls GET /v1/models; returns nil if the endpoint is reachable.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	url := p.baseURL + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("openai healthcheck: build request: %w", err)
	}
	p.setHeaders(req)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai healthcheck: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai healthcheck: status %d", resp.StatusCode)
	}
	return nil
}

// ===== helpers =====

// doPost sends a POST request to baseURL+path and returns the response body.
// Caller is responsible for closing the returned ReadCloser.
func (p *OpenAIProvider) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	url := p.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai post %s: build request: %w", path, err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai post %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close() //nolint:errcheck
		return nil, apiError(path, resp)
	}
	return resp.Body, nil
}

// apiError builds an error from a non-2xx response, using the structured
// error body when the backend provides one.
func apiError(path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errResp openAIErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != nil {
		return fmt.Errorf("openai post %s: status %d: %s (type %s)", path, resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
	}
	return fmt.Errorf("openai post %s: status %d", path, resp.StatusCode)
}

func (p *OpenAIProvider) setHeaders(req *http.Request) {
	req.Header.Set(headerContentType, mimeJSON)
	if p.apiKey != "" {
		req.Header.Set(headerAuth, "Bearer "+p.apiKey)
	}
}
