package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// OpenAI Script Polish Service
// Optional pre-TTS step: rewrites the raw user script into natural spoken
// ad copy. Disabled (nil) when no key is configured; failures fall back to
// the original script.
// ---------------------------------------------------------------------------

const scriptPolishModel = "gpt-4o-mini"

// ScriptEnhancer rewrites the raw script before it goes to TTS.
type ScriptEnhancer interface {
	PolishScript(ctx context.Context, script string) string
}

type OpenAIService struct {
	client *openai.Client
}

var _ ScriptEnhancer = (*OpenAIService)(nil)

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
	}
}

// NewOpenAIServiceWithConfig allows overriding the API base URL (testing).
func NewOpenAIServiceWithConfig(apiKey, baseURL string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
	}
}

// PolishScript rewrites the script into natural spoken ad copy. On any
// failure the original script is returned unchanged — polish is strictly
// best-effort.
func (s *OpenAIService) PolishScript(ctx context.Context, script string) string {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: scriptPolishModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You rewrite product ad scripts into natural, conversational spoken copy for a short UGC-style video. " +
					"Keep the meaning and any product claims exactly as given. Keep it under 60 words. " +
					"Return only the rewritten script, no quotes or commentary.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: script,
			},
		},
		Temperature: 0.7,
	})
	if err != nil {
		log.Printf("[OpenAI] Script polish failed: %v (using original script)", err)
		return script
	}

	if len(resp.Choices) == 0 {
		log.Printf("[OpenAI] Script polish returned no choices (using original script)")
		return script
	}

	polished := strings.TrimSpace(resp.Choices[0].Message.Content)
	if polished == "" {
		return script
	}

	log.Printf("[OpenAI] Script polished (%d -> %d chars)", len(script), len(polished))
	return polished
}

// BuildVideoPrompt composes the prompt handed to the hosted text-to-video
// model from the user's script.
func BuildVideoPrompt(script string) string {
	return fmt.Sprintf(`A UGC-style ad video. A person speaks directly to the camera in a casual, authentic setting, presenting a product.

They say: %q

Natural handheld framing, soft indoor lighting, vertical format.`, script)
}
