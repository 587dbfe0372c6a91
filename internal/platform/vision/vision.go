// Package vision extracts structured values from uploaded trial documents
// (lab reports, echo reports, referral notes) using a vision-capable chat
// model. The model is treated as unreliable: replies may wrap the JSON in
// prose or fences, omit fields, or return out-of-range values. This package
// only salvages a JSON object from the reply; range checks belong to the
// caller.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNoJSON        = errors.New("model reply contained no JSON object")
)

// completionService is the minimal chat-completions surface, so tests can
// stub the model.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Extractor runs vision prompts that must return a single JSON object.
type Extractor struct {
	chat  completionService
	model string
}

// NewExtractor builds an Extractor talking to the OpenAI API.
func NewExtractor(apiKey, model string) (*Extractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Extractor{chat: &client.Chat.Completions, model: model}, nil
}

// ExtractJSON sends the document inline with the prompt and returns the
// parsed JSON object from the reply. Missing fields are simply absent from
// the map; JSON nulls come through as nil values.
func (e *Extractor) ExtractJSON(ctx context.Context, document []byte, mimeType, prompt string) (map[string]interface{}, error) {
	if len(document) == 0 {
		return nil, ErrEmptyDocument
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(document))

	resp, err := e.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
				openai.TextContentPart(prompt),
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoJSON
	}

	return ParseJSONObject(resp.Choices[0].Message.Content)
}

// ParseJSONObject salvages the first JSON object out of a model reply,
// tolerating surrounding prose and markdown fences.
func ParseJSONObject(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, ErrNoJSON
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return parsed, nil
}

// Number coerces a JSON field value to a float64. It returns false for
// absent fields, nulls, and anything non-numeric that does not parse.
func Number(fields map[string]interface{}, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		var n float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &n); err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
