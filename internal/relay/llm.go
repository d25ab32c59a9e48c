package relay

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ChatClient выполняет запрос к chat completion API
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = "Eres el asistente de reservas de un hotel. Responde breve y en el idioma del huésped. " +
	"Si no tienes el dato, responde exactamente NO_SE."

// unknownAnswer означает, что модель не знает ответа
const unknownAnswer = "NO_SE"

// LLMAnswerer отвечает через языковую модель, подставляя FAQ в подсказку
type LLMAnswerer struct {
	client  ChatClient
	model   string
	faq     *FAQMatcher
	timeout time.Duration
}

// NewLLMAnswerer создает ответчик. faq может быть nil.
func NewLLMAnswerer(client ChatClient, model string, faq *FAQMatcher) *LLMAnswerer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &LLMAnswerer{client: client, model: model, faq: faq, timeout: 20 * time.Second}
}

// NewOpenAIAnswerer создает ответчик поверх клиента OpenAI
func NewOpenAIAnswerer(apiKey, model string, faq *FAQMatcher) *LLMAnswerer {
	return NewLLMAnswerer(openai.NewClient(apiKey), model, faq)
}

// Answer спрашивает модель. Пустой ответ или NO_SE дают ok=false.
func (a *LLMAnswerer) Answer(ctx context.Context, question string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := systemPrompt
	if a.faq != nil {
		if faq := a.faq.Context(ctx, 30); faq != "" {
			prompt += "\n\nPreguntas frecuentes del hotel:\n" + faq
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", false, err
	}
	if len(resp.Choices) == 0 {
		return "", false, nil
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" || strings.Contains(answer, unknownAnswer) {
		return "", false, nil
	}
	return answer, true, nil
}
