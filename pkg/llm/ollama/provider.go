package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/usage"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements TextGenerator
var _ llm.TextGenerator = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int32         `json:"prompt_eval_count"`
	EvalCount       int32         `json:"eval_count"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) Generate(ctx context.Context, req llm.Request, opts ...llm.Option) (*llm.Response, error) {
	// 1. Process Options
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: o.ModelName}, opts...)

	// 2. Map generic messages to Ollama messages, instruction first
	ollamaMessages := make([]ollamaMessage, 0, len(req.Contents)+1)
	if req.Instruction != "" {
		ollamaMessages = append(ollamaMessages, ollamaMessage{Role: "system", Content: req.Instruction})
	}
	for _, msg := range req.Contents {
		role := msg.Role
		if role == llm.RoleModel {
			role = "assistant"
		}
		ollamaMessages = append(ollamaMessages, ollamaMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	// 3. Prepare Payload
	reqPayload := ollamaChatRequest{
		Model:    options.Model,
		Messages: ollamaMessages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}
	if req.Schema != nil {
		reqPayload.Format = req.Schema
	}
	if options.MaxTokens > 0 {
		reqPayload.Options.NumPredict = options.MaxTokens
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// 4. Send Request
	url := o.BaseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	// 5. Parse Response
	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &llm.Response{
		Text:  ollamaResp.Message.Content,
		Model: options.Model,
		Usage: usage.Raw{
			PromptTokenCount:     ollamaResp.PromptEvalCount,
			CandidatesTokenCount: ollamaResp.EvalCount,
		},
	}, nil
}
