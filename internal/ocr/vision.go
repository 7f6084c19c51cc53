package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/kapu/baselink-bot/internal/config"
	"github.com/kapu/baselink-bot/internal/constants"
	"github.com/kapu/baselink-bot/internal/domain"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	openAIBackend = "openai"
	geminiBackend = "gemini"
)

// OpenAIVisionExtractor asks a vision-capable chat model to transcribe the
// screenshot. BaseURL may point at any OpenAI-compatible gateway.
type OpenAIVisionExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIVisionExtractor(cfg config.OpenAIConfig, logger *zap.Logger) (*OpenAIVisionExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.VisionModel
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIVisionExtractor{client: &client, model: model, logger: logger}, nil
}

func (o *OpenAIVisionExtractor) Name() string {
	return openAIBackend
}

func (o *OpenAIVisionExtractor) ExtractText(ctx context.Context, att *domain.ImageAttachment) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", sniffMIME(att), base64.StdEncoding.EncodeToString(att.Data))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(constants.OCRConfig.VisionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		MaxCompletionTokens: openai.Int(int64(constants.OCRConfig.MaxVisionToken)),
	})
	if err != nil {
		return "", apperrors.NewExtractionError(openAIBackend, "vision request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewExtractionError(openAIBackend, "no choices in vision response", nil)
	}

	o.logger.Debug("OpenAI vision response received",
		zap.String("model", o.model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return normalizeVisionText(resp.Choices[0].Message.Content), nil
}

// GeminiVisionExtractor sends the screenshot as inline data to Gemini.
type GeminiVisionExtractor struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiVisionExtractor(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*GeminiVisionExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.VisionModel
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiVisionExtractor{client: client, model: model, logger: logger}, nil
}

func (g *GeminiVisionExtractor) Name() string {
	return geminiBackend
}

func (g *GeminiVisionExtractor) ExtractText(ctx context.Context, att *domain.ImageAttachment) (string, error) {
	temp := float32(0)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: constants.OCRConfig.VisionPrompt},
				{InlineData: &genai.Blob{MIMEType: sniffMIME(att), Data: att.Data}},
			},
		},
	}, &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(constants.OCRConfig.MaxVisionToken),
	})
	if err != nil {
		return "", apperrors.NewExtractionError(geminiBackend, "vision request failed", err)
	}

	text := extractTextFromGeminiResponse(resp)
	g.logger.Debug("Gemini vision response received",
		zap.String("model", g.model),
		zap.Int("length", len(text)),
	)
	return normalizeVisionText(text), nil
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}

// normalizeVisionText maps the model's no-text marker to "" and strips code
// fences models sometimes add despite the prompt.
func normalizeVisionText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if strings.EqualFold(strings.Trim(text, "'\"."), constants.OCRConfig.NoTextMarker) {
		return ""
	}
	return text
}
