// Package captioner asks a vision-capable model for a mood and note
// suggestion for a photo. It only ever pre-fills the compose form; saving a
// memory never depends on it.
package captioner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mkarlsen/keepsake/internal/models"
)

const defaultModel = "gpt-4o-mini"

const prompt = `You are captioning a photo for a family baby journal.
Reply with a single JSON object, no markdown fences, of the form
{"mood": "<one of: happy, sleepy, playful, fussy, curious, milestone>", "caption": "<one warm sentence>"}.`

// Suggestion is the model's proposed pre-fill for the compose form.
type Suggestion struct {
	Mood models.Mood `json:"mood"`
	Note string      `json:"caption"`
}

// Client wraps the captioning API.
type Client struct {
	api   openai.Client
	model string
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithModel sets the model used for caption suggestions. An empty value
// keeps the default.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New creates a captioning client. If apiKey is empty it falls back to the
// OPENAI_API_KEY environment variable; with neither present it returns
// (nil, nil) and the feature is disabled.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, nil
	}

	c := &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: defaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Suggest sends the image inline as a data URI and parses the model's JSON
// reply. An unknown mood in the reply is dropped rather than propagated.
func (c *Client) Suggest(ctx context.Context, payload []byte, mimeType string) (*Suggestion, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(payload))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("captioner: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("captioner: empty response")
	}
	return parseSuggestion(resp.Choices[0].Message.Content)
}

// parseSuggestion tolerates markdown fences around the JSON object, which
// some models add despite instructions.
func parseSuggestion(content string) (*Suggestion, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var s Suggestion
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("captioner: parse reply: %w", err)
	}
	if !s.Mood.Valid() {
		s.Mood = ""
	}
	return &s, nil
}
