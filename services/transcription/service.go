package transcription

import (
	"context"
	"encoding/json"

	"yt-segments/errors"
	"yt-segments/llm"
	"yt-segments/tokens"

	"github.com/rs/zerolog"
)

// Service turns downloaded audio into transcript text via the model. A
// malformed response is never fatal here: any recovered text is more useful
// than a parse error, so the full fallback chain applies.
type Service interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, tokens.Usage, error)
}

type service struct {
	client llm.Client
	logger zerolog.Logger
}

func NewService(client llm.Client, logger zerolog.Logger) Service {
	return &service{
		client: client,
		logger: logger,
	}
}

const transcribePrompt = `Please transcribe the following audio file.

CRITICAL: You must return ONLY a valid JSON object. Do not include any markdown formatting, code blocks, explanations, or additional text.

Return exactly this JSON structure:
{
  "text": "Full transcript text here"
}

Guidelines:
- Provide accurate transcription of all spoken content
- Include all spoken words and sentences
- Return ONLY the JSON object - no code blocks, no explanations, no additional text`

func (s *service) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, tokens.Usage, error) {
	const op = "TranscriptionService.Transcribe"
	logger := s.logger.With().
		Str("operation", op).
		Int("audio_bytes", len(audio)).
		Str("mime_type", mimeType).
		Logger()

	// Input side is fixed before the call: audio size plus prompt length.
	inputTokens := tokens.EstimateAudio(len(audio)) + tokens.EstimateText(transcribePrompt)

	response, err := s.client.Generate(ctx, transcribePrompt, &llm.Attachment{
		MIMEType: mimeType,
		Data:     audio,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Model call failed")
		return "", tokens.Usage{}, errors.ModelInvocation(op, err, "Failed to transcribe audio")
	}

	text, recovered := extractTranscript(response)
	if recovered {
		logger.Warn().Int("response_length", len(response)).
			Msg("Response was not clean JSON, used fallback extraction")
	}

	usage := tokens.Usage{
		InputTokens:  inputTokens,
		OutputTokens: tokens.EstimateText(text),
	}

	logger.Info().Int("transcript_length", len(text)).Msg("Audio transcribed")
	return text, usage, nil
}

// extractTranscript pulls the transcript out of the model response, reporting
// whether the fallback tiers were needed.
func extractTranscript(response string) (string, bool) {
	extracted, err := llm.ExtractJSON(response)
	if err != nil {
		return llm.FallbackText(response), true
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		return llm.FallbackText(response), true
	}
	return parsed.Text, false
}
