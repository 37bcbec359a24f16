package categorize

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const suggestToolName = "suggest_expense"

// OpenAIClassifier asks an OpenAI compatible chat model for a suggestion,
// forcing a single tool call whose subcategory is restricted to the labels.
type OpenAIClassifier struct {
	modelName string
	client    *openai.Client
	timeout   time.Duration
}

func NewOpenAIClassifier(apiKey, baseURL, modelName string) *OpenAIClassifier {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClassifier{
		modelName: modelName,
		client:    openai.NewClientWithConfig(config),
		timeout:   30 * time.Second,
	}
}

func suggestTool(labels []string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        suggestToolName,
			Description: "Record a single household expense extracted from a description or a receipt.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name": {
						Type:        jsonschema.String,
						Description: "Short merchant or item name, without amounts or dates.",
					},
					"amount": {
						Type:        jsonschema.Number,
						Description: "Total amount paid. Sum the items when there are several.",
					},
					"subCategory": {
						Type:        jsonschema.String,
						Enum:        labels,
						Description: "Exactly one label from the list.",
					},
				},
				Required: []string{"name", "amount", "subCategory"},
			},
		},
	}
}

func userMessage(in Input) openai.ChatCompletionMessage {
	text := strings.TrimSpace(in.Text)
	if len(in.Image) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	}
	if text == "" {
		text = "Extract the expense from this receipt."
	}
	mime := in.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: text},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(in.Image),
					Detail: openai.ImageURLDetailLow,
				},
			},
		},
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, in Input, labels []string) (Suggestion, error) {
	if err := in.Validate(); err != nil {
		return Suggestion{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a bookkeeping assistant for a household budget. Reply only through the tool.",
			},
			userMessage(in),
		},
		Tools: []openai.Tool{suggestTool(labels)},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: suggestToolName},
		},
		Temperature: 0.1,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("chat completion: %w", err)
	}

	raw, err := parseToolCall(resp)
	if err != nil {
		return Suggestion{}, err
	}

	slog.DebugContext(ctx, "Expense suggestion received",
		"model", c.modelName,
		"has_image", len(in.Image) > 0,
		"duration", time.Since(start))

	return Sanitize(raw), nil
}

func parseToolCall(resp openai.ChatCompletionResponse) (Raw, error) {
	if len(resp.Choices) == 0 {
		return Raw{}, ErrNoSuggestion
	}
	msg := resp.Choices[0].Message
	args := ""
	for _, call := range msg.ToolCalls {
		if call.Function.Name == suggestToolName {
			args = call.Function.Arguments
			break
		}
	}
	if args == "" {
		// Some compatible servers answer in plain content instead.
		args = strings.TrimSpace(msg.Content)
	}
	if args == "" {
		return Raw{}, ErrNoSuggestion
	}
	var raw Raw
	if err := json.Unmarshal([]byte(args), &raw); err != nil {
		return Raw{}, fmt.Errorf("%w: %v", ErrNoSuggestion, err)
	}
	return raw, nil
}
