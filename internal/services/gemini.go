package services

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini Image Generation Service
// Uses the Google Gen AI SDK to turn the product photo into a UGC-style
// persona shot: a person holding or presenting the product.
// Vendor failures never fail the pipeline — the original product image is
// passed through unchanged so the later stages still have a frame to use.
// ---------------------------------------------------------------------------

const geminiImageModel = "gemini-2.5-flash-image-preview"

// ImageGenerator produces the persona image for the lip-sync stage.
type ImageGenerator interface {
	GenerateModelImage(ctx context.Context, productImage []byte, mimeType, modelStyle string) ([]byte, error)
}

// GeminiService handles image generation via Gemini.
type GeminiService struct {
	apiKey  string
	baseURL string // Overridable for testing; empty means the public API
}

var _ ImageGenerator = (*GeminiService)(nil)

func NewGeminiService(apiKey, baseURL string) *GeminiService {
	return &GeminiService{apiKey: apiKey, baseURL: baseURL}
}

// GenerateModelImage generates a UGC persona image from the product photo.
//
// On ANY failure (no key, API error, empty response) the original product
// image bytes are returned unchanged and the error is only logged. The
// returned error is always nil for this implementation; the interface keeps
// it so alternative generators can report structural failures.
func (s *GeminiService) GenerateModelImage(ctx context.Context, productImage []byte, mimeType, modelStyle string) ([]byte, error) {
	if s.apiKey == "" {
		log.Printf("[Gemini] No API key configured, passing product image through")
		return productImage, nil
	}

	generated, err := s.generate(ctx, productImage, mimeType, modelStyle)
	if err != nil {
		log.Printf("[Gemini] Image generation failed: %v (passing product image through)", err)
		return productImage, nil
	}

	log.Printf("[Gemini] Model image generated (%d bytes, style=%q)", len(generated), modelStyle)
	return generated, nil
}

func (s *GeminiService) generate(ctx context.Context, productImage []byte, mimeType, modelStyle string) ([]byte, error) {
	cfg := &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(composeModelImagePrompt(modelStyle)),
			genai.NewPartFromBytes(productImage, mimeType),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := client.Models.GenerateContent(ctx, geminiImageModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}

	return nil, fmt.Errorf("no image data in response (%d parts)", len(resp.Candidates[0].Content.Parts))
}

// composeModelImagePrompt builds the persona prompt. The product photo is
// attached as inline data, so the text only needs to describe the person
// and the framing.
func composeModelImagePrompt(modelStyle string) string {
	if modelStyle == "" {
		modelStyle = "young woman"
	}

	var prompt bytes.Buffer
	prompt.WriteString(fmt.Sprintf("Create a photorealistic UGC-style photo of a %s holding and presenting the product from the attached image.\n\n", modelStyle))
	prompt.WriteString("Requirements:\n")
	prompt.WriteString("- The person faces the camera directly, natural smile, as if recording a selfie ad\n")
	prompt.WriteString("- The product is clearly visible, label readable, held at chest height\n")
	prompt.WriteString("- Soft natural indoor lighting, casual authentic setting\n")
	prompt.WriteString("- Vertical framing suitable for a 9:16 short-form video\n")
	prompt.WriteString("- Keep the product exactly as it appears in the source image, do not redesign it")
	return prompt.String()
}
