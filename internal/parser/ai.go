// internal/parser/ai.go
package parser

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"calorie-bot/pkg/logger"
)

// AIParser is the model-assisted tier. It asks the model for a structured
// JSON extraction and falls back to the rule tier on any failure, so callers
// see the same contract either way.
type AIParser struct {
	client   *openai.Client
	model    string
	fallback Parser
	log      *logger.Logger
}

func NewAIParser(client *openai.Client, model string, fallback Parser, log *logger.Logger) *AIParser {
	return &AIParser{client: client, model: model, fallback: fallback, log: log}
}

type aiParseResult struct {
	Items []struct {
		Name  string `json:"name"`
		Grams int    `json:"grams"`
	} `json:"items"`
	Unrecognized []string `json:"unrecognized"`
}

const aiParseSystemPrompt = "Ты извлекаешь продукты из свободного текста. " +
	"Верни JSON вида {\"items\":[{\"name\":\"...\",\"grams\":0}],\"unrecognized\":[\"...\"]}. " +
	"grams — вес в граммах; если вес не указан, поставь 0. " +
	"Фрагменты, которые не являются продуктами, помести в unrecognized."

func (p *AIParser) Parse(ctx context.Context, text string) ([]Item, []string) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: aiParseSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   500,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil || len(resp.Choices) == 0 {
		p.log.Warnw("Model-assisted parse failed, using rule parser", "error", err)
		return p.fallback.Parse(ctx, text)
	}

	var result aiParseResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		p.log.Warnw("Model-assisted parse returned malformed JSON, using rule parser", "error", err)
		return p.fallback.Parse(ctx, text)
	}

	var items []Item
	for _, it := range result.Items {
		if it.Name == "" {
			continue
		}
		if it.Grams <= 0 {
			items = append(items, Item{Name: it.Name, Grams: defaultGrams, Assumed: true})
			continue
		}
		items = append(items, Item{Name: it.Name, Grams: it.Grams})
	}
	if len(items) == 0 && len(result.Unrecognized) == 0 {
		return p.fallback.Parse(ctx, text)
	}
	return items, result.Unrecognized
}
