// internal/gpt/client.go
package gpt

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"calorie-bot/internal/metrics"
	"calorie-bot/internal/models"
	"calorie-bot/internal/parser"
)

const systemPrompt = "Ты опытный диетолог. Отвечай по-русски, кратко и структурированно. " +
	"Для оценок КБЖУ указывай калории и Б/Ж/У в граммах."

type Client struct {
	client      *openai.Client
	model       string
	visionModel string
}

func NewClient(apiKey string) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		model:       "gpt-4o-mini",
		visionModel: "gpt-4o",
	}
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithVisionModel(model string) *Client {
	if model != "" {
		c.visionModel = model
	}
	return c
}

// OpenAI exposes the underlying API client for components that issue their
// own requests, such as the model-assisted parser tier.
func (c *Client) OpenAI() *openai.Client {
	return c.client
}

func (c *Client) complete(ctx context.Context, kind, model, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.ObserveGeneration(kind, start, err)
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from generation API")
	}
	return resp.Choices[0].Message.Content, nil
}

// EstimateItems estimates calories and macros for a parsed ingredient list.
func (c *Client) EstimateItems(ctx context.Context, items []parser.Item) (string, error) {
	var lines []string
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- %s — %d г", it.Name, it.Grams))
	}
	prompt := "Оцени КБЖУ для списка продуктов:\n" + strings.Join(lines, "\n") +
		"\n\nДай построчную оценку и итог: калории и Б/Ж/У."
	return c.complete(ctx, "list_estimate", c.model, prompt, 900)
}

// EstimatePhoto estimates calories and macros for a dish photo by URL.
func (c *Client) EstimatePhoto(ctx context.Context, imageURL string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Определи блюда на фото и оцени КБЖУ порции: калории и Б/Ж/У.",
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
		MaxTokens:   700,
		Temperature: 0.7,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.ObserveGeneration("photo_estimate", start, err)
	if err != nil {
		return "", fmt.Errorf("photo analysis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from generation API")
	}
	return resp.Choices[0].Message.Content, nil
}

// Recipe generates a recipe for a free-text request.
func (c *Client) Recipe(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(
		"Подбери рецепт по запросу: «%s».\n"+
			"Укажи ингредиенты с граммами, шаги приготовления и КБЖУ порции.",
		query,
	)
	return c.complete(ctx, "recipe", c.model, prompt, 1200)
}

// RecipeForCalories generates a recipe hitting a calorie target.
func (c *Client) RecipeForCalories(ctx context.Context, kcal int) (string, error) {
	prompt := fmt.Sprintf(
		"Подбери рецепт примерно на %d ккал.\n"+
			"Укажи ингредиенты с граммами, шаги приготовления и точное КБЖУ.",
		kcal,
	)
	return c.complete(ctx, "recipe_kcal", c.model, prompt, 1200)
}

// WeekPlan generates a 7-day meal plan personalized by the questionnaire.
func (c *Client) WeekPlan(ctx context.Context, profile models.Profile) (string, error) {
	prompt := fmt.Sprintf(
		"Составь меню на 7 дней для человека со следующими параметрами:\n"+
			"- Пол: %s\n"+
			"- Рост: %d см\n"+
			"- Вес: %d кг\n"+
			"- Возраст: %d\n"+
			"- Активность: %s\n"+
			"- Цель: %s\n\n"+
			"Для каждого дня: завтрак, обед, ужин, перекус с КБЖУ. "+
			"В конце — дневная норма калорий и рекомендации по воде.",
		profile.Sex, profile.Height, profile.Weight, profile.Age, profile.Activity, profile.Goal,
	)
	return c.complete(ctx, "week_plan", c.model, prompt, 2500)
}
