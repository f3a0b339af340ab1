package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/usage"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// LanguageResult is the accepted reply of a language model call.
type LanguageResult struct {
	Text     string
	JSON     json.RawMessage // set when the request carried a schema
	Model    string
	Attempts int
}

// Decode unmarshals the structured reply into out.
func (r *LanguageResult) Decode(out any) error {
	if len(r.JSON) == 0 {
		return fmt.Errorf("%w: reply is not structured", apperror.ErrSchemaValidationFailed)
	}
	return json.Unmarshal(r.JSON, out)
}

// LanguageExecutor wraps a TextGenerator with retries, schema validation and
// usage metering. The usage accumulator belongs to one turn; build a fresh
// executor per turn through Factory.NewSet.
type LanguageExecutor struct {
	gen     llm.TextGenerator
	policy  RetryPolicy
	log     logger.ILogger
	callLog logger.ILogger
	usage   usage.Totals
}

func NewLanguageExecutor(gen llm.TextGenerator, policy RetryPolicy, log, callLog logger.ILogger) *LanguageExecutor {
	return &LanguageExecutor{gen: gen, policy: policy, log: log, callLog: callLog}
}

func (e *LanguageExecutor) Execute(ctx context.Context, req llm.Request, opts ...llm.Option) (*LanguageResult, error) {
	op := operation("language", req.Name)

	var schema *jsonschema.Schema
	if req.Schema != nil {
		s, err := compileSchema(req.Name, req.Schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		schema = s
	}

	res, attempts, err := retry(ctx, e.policy, op, e.log, func(ctx context.Context, attempt int) (*LanguageResult, error) {
		resp, err := e.gen.Generate(ctx, req, opts...)
		if resp != nil {
			e.usage = usage.Sum(e.usage, usage.Normalize(resp.Usage))
		}
		if err != nil {
			return nil, err
		}

		e.callLog.Debug("LLM", "Model reply", map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
			"model":     resp.Model,
			"text":      resp.Text,
		})

		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, ErrEmptyResponse
		}
		if schema == nil {
			return &LanguageResult{Text: text, Model: resp.Model}, nil
		}

		raw := CleanJSON(text)
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %v", apperror.ErrSchemaValidationFailed, err)
		}
		if err := schema.Validate(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", apperror.ErrSchemaValidationFailed, err)
		}
		return &LanguageResult{Text: raw, JSON: json.RawMessage(raw), Model: resp.Model}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Attempts = attempts
	return res, nil
}

// Usage returns the totals metered since the last reset.
func (e *LanguageExecutor) Usage() usage.Totals { return e.usage }

func (e *LanguageExecutor) ResetUsage() { e.usage = usage.Totals{} }

// CleanJSON strips markdown code fences some models wrap JSON replies in.
func CleanJSON(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

func compileSchema(name string, doc map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	if name == "" {
		name = "anonymous"
	}
	url := "mem://schemas/" + name + ".json"

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func operation(kind, name string) string {
	if name == "" {
		return kind
	}
	return kind + ":" + name
}
