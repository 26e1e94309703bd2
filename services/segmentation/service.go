package segmentation

import (
	"context"
	"encoding/json"
	"fmt"

	"yt-segments/errors"
	"yt-segments/llm"
	"yt-segments/models"
	"yt-segments/tokens"

	"github.com/rs/zerolog"
)

// Service splits a raw transcript into titled topic segments using the model.
// Unlike transcription there is no prose fallback here: a segment list cannot
// be recovered from free text, so a malformed response fails the call.
type Service interface {
	SegmentTranscript(ctx context.Context, text string) ([]models.LogicalSegment, tokens.Usage, error)
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

const segmentPromptTemplate = `You are a video transcript analyzer. Your task is to create logical segments from a transcript based on content themes and topics.

TRANSCRIPT:
%s

REQUIREMENTS:
1. Create 5-10 logical segments that group related content by topic/theme
2. Each segment must have:
   - title: descriptive string summarizing the topic
   - text: relevant portion of the transcript for that topic

GUIDELINES:
- Group content by logical themes or topics
- Each segment should contain complete thoughts or related information
- Provide meaningful titles that summarize the content
- Ensure segments flow logically from one to the next
- Cover the entire transcript content

EXAMPLE OUTPUT FORMAT:
{
  "segments": [
    {
      "title": "Introduction",
      "text": "First portion of the transcript..."
    },
    {
      "title": "Main Topic",
      "text": "Second portion of the transcript..."
    }
  ]
}

RESPOND WITH ONLY THE JSON OBJECT. NO MARKDOWN, NO EXPLANATIONS, NO CODE BLOCKS.`

func (s *service) SegmentTranscript(ctx context.Context, text string) ([]models.LogicalSegment, tokens.Usage, error) {
	const op = "SegmentationService.SegmentTranscript"
	logger := s.logger.With().Str("operation", op).Logger()

	prompt := fmt.Sprintf(segmentPromptTemplate, text)

	// Estimated before the call; the input side does not depend on what the
	// model sends back.
	usage := tokens.Usage{InputTokens: tokens.EstimateText(prompt + text)}

	response, err := s.client.Generate(ctx, prompt, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Model call failed")
		return nil, tokens.Usage{}, errors.ModelInvocation(op, err, "Failed to generate segments")
	}

	usage.OutputTokens = tokens.EstimateText(response)

	extracted, err := llm.ExtractJSON(response)
	if err != nil {
		logger.Error().Err(err).Int("response_length", len(response)).
			Msg("Segment extraction failed")
		return nil, tokens.Usage{}, errors.SegmentationFailed(
			op, err, fmt.Sprintf("Failed to create logical segments: %v", err))
	}

	var parsed struct {
		Segments []models.LogicalSegment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		logger.Error().Err(err).Msg("Segment response did not match expected shape")
		return nil, tokens.Usage{}, errors.SegmentationFailed(
			op, err, fmt.Sprintf("Failed to create logical segments: %v", err))
	}

	segments := parsed.Segments
	if segments == nil {
		segments = []models.LogicalSegment{}
	}

	logger.Info().Int("segment_count", len(segments)).Msg("Transcript segmented")
	return segments, usage, nil
}
