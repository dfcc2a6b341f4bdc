package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/metrics"
	"google.golang.org/genai"
)

// ErrNoImage is returned when the model answered without an image
var ErrNoImage = errors.New("no image generated")

// GeneratedImage is base64 image data returned by the model
type GeneratedImage struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

const geminiAPIVersion = "v1beta"

// ImageGenerator asks a Gemini image model to draw catalog artwork
// (category icons, theme backgrounds, free prompts).
type ImageGenerator struct {
	client *genai.Client
	model  string
}

// NewImageGenerator returns a nil generator when no API key is configured
func NewImageGenerator(ctx context.Context, cfg *config.Config) (*ImageGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: geminiAPIVersion,
		},
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &ImageGenerator{client: client, model: cfg.GeminiModel}, nil
}

var imageGeneratorInstance *ImageGenerator

// GetImageGenerator returns the configured generator, nil when disabled
func GetImageGenerator() *ImageGenerator {
	return imageGeneratorInstance
}

// SetImageGenerator sets the generator instance
func SetImageGenerator(g *ImageGenerator) {
	imageGeneratorInstance = g
}

// Generate draws an image for prompt. When the model replies with text only,
// ErrNoImage is returned together with that text.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (*GeneratedImage, string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		metrics.Get().ImageGeneration.WithLabelValues("error").Inc()
		return nil, "", fmt.Errorf("failed to call image model: %w", err)
	}

	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				metrics.Get().ImageGeneration.WithLabelValues("ok").Inc()
				return &GeneratedImage{
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
					MimeType: part.InlineData.MIMEType,
				}, "", nil
			}
			if text == "" {
				text = part.Text
			}
		}
	}
	metrics.Get().ImageGeneration.WithLabelValues("no_image").Inc()
	return nil, text, ErrNoImage
}

// CategoryIconPrompt builds the prompt for a category icon
func CategoryIconPrompt(categoryName, style string) string {
	if style == "" {
		style = "neon cyberpunk"
	}
	return fmt.Sprintf(`Create a simple, minimalist icon for "%s" category.
Style: %s.
Requirements:
- Single icon, centered
- Transparent or dark background (#0a0a0a)
- Glowing effect
- Size: 128x128 pixels
- No text, only symbol`, categoryName, style)
}

// ThemeBackgroundPrompt builds the prompt for a mini-app theme background
func ThemeBackgroundPrompt(themeName, description string) string {
	return fmt.Sprintf(`Create an abstract background pattern for a mobile app theme called "%s".
Description: %s
Requirements:
- Abstract, seamless pattern
- Dark base color
- Subtle, not distracting
- Size: 1080x1920 pixels (mobile)
- No text or logos`, themeName, description)
}
