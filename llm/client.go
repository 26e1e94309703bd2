package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Attachment is a binary payload sent alongside a prompt, typically audio.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Client is the narrow contract the services depend on. The response text
// carries no structural guarantee: it may be truncated, fenced in markdown,
// or padded with prose. Extraction is the caller's problem.
type Client interface {
	Generate(ctx context.Context, prompt string, attachment *Attachment) (string, error)
}

// GeminiClient calls the Gemini API. Calls are throttled client-side so a
// burst of submissions does not trip the per-minute quota.
type GeminiClient struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

type GeminiConfig struct {
	APIKey string
	Model  string
	// RequestsPerMinute caps the call rate; zero disables throttling.
	RequestsPerMinute int
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger zerolog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		limiter: limiter,
		logger:  logger,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, attachment *Attachment) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	parts := []genai.Part{genai.Text(prompt)}
	if attachment != nil {
		parts = append(parts, genai.Blob{
			MIMEType: attachment.MIMEType,
			Data:     attachment.Data,
		})
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("prompt_length", len(prompt)).
		Bool("has_attachment", attachment != nil).
		Msg("Invoking model")

	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}

	c.logger.Debug().
		Int("response_length", sb.Len()).
		Msg("Model response received")

	return sb.String(), nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
