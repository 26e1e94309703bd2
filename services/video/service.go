package video

import (
	"context"
	stderrors "errors"
	"time"

	"yt-segments/errors"
	"yt-segments/models"
	"yt-segments/repository"
	"yt-segments/services/segmentation"
	"yt-segments/tokens"
	"yt-segments/validation"
	"yt-segments/videoproc"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Repository = repository.VideoRepository

type service struct {
	repo      Repository
	acquirer  videoproc.Acquirer
	segmenter segmentation.Service
	validator *validation.Validator
	config    Config
	logger    zerolog.Logger
}

func NewService(
	repo Repository,
	acquirer videoproc.Acquirer,
	segmenter segmentation.Service,
	validator *validation.Validator,
	config Config,
	logger zerolog.Logger,
) Service {
	return &service{
		repo:      repo,
		acquirer:  acquirer,
		segmenter: segmenter,
		validator: validator,
		config:    config,
		logger:    logger,
	}
}

func (s *service) Process(ctx context.Context, youtubeURL string) (*models.ProcessResult, error) {
	const op = "VideoService.Process"
	logger := s.logger.With().
		Str("operation", op).
		Str("url", youtubeURL).
		Logger()
	logger.Info().Msg("Processing video request")

	if err := s.validator.ValidateURL(youtubeURL); err != nil {
		logger.Info().Err(err).Msg("URL validation failed")
		return nil, err
	}

	if s.config.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ProcessTimeout)
		defer cancel()
	}

	// Dedup check: a URL with a persisted transcript is returned as-is, with
	// no downloads and no model calls.
	existing, err := s.repo.FindByURL(ctx, youtubeURL)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		transcript, terr := s.repo.GetTranscriptByVideoID(ctx, existing.ID)
		if terr == nil {
			logger.Info().Str("video_id", existing.ID).Msg("Returning cached result")
			return &models.ProcessResult{Video: existing, Transcript: transcript}, nil
		}
		if !errors.IsNotFound(terr) {
			return nil, terr
		}
		// Video row without a transcript: an earlier run died between the
		// two saves. Reuse the stored metadata and finish the pipeline.
		logger.Warn().Str("video_id", existing.ID).
			Msg("Found video without transcript, resuming processing")
	}

	var video *models.Video
	if existing != nil {
		video = existing
	} else {
		info, err := s.acquirer.ExtractVideoInfo(ctx, youtubeURL)
		if err != nil {
			logger.Error().Err(err).Msg("Video info extraction failed")
			return nil, err
		}

		now := time.Now().UTC()
		video = &models.Video{
			ID:           uuid.New().String(),
			YoutubeURL:   youtubeURL,
			Title:        info.Title,
			Duration:     info.Duration,
			ThumbnailURL: info.ThumbnailURL,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	acquired, err := s.acquirer.GetTranscript(ctx, youtubeURL)
	if err != nil {
		logger.Error().Err(err).Msg("Transcript acquisition failed")
		return nil, err
	}
	logger.Info().Int("transcript_length", len(acquired.Text)).Msg("Transcript acquired")

	segments, segmentUsage, err := s.segmenter.SegmentTranscript(ctx, acquired.Text)
	if err != nil {
		logger.Error().Err(err).Msg("Segmentation failed")
		return nil, err
	}

	if existing == nil {
		if err := s.repo.Save(ctx, video); err != nil {
			if stderrors.Is(err, repository.ErrDuplicateURL) {
				// Lost a race with a concurrent submission of the same URL.
				return s.resolveConflict(ctx, logger, youtubeURL, acquired, segments, segmentUsage)
			}
			return nil, err
		}
	}

	// The transcript carries usage summed across every model call that
	// produced it: transcription plus segmentation.
	usage := acquired.Usage.Add(segmentUsage)

	transcript := &models.Transcript{
		ID:              uuid.New().String(),
		VideoID:         video.ID,
		Text:            acquired.Text,
		LogicalSegments: segments,
		InputTokens:     usage.InputTokens,
		OutputTokens:    usage.OutputTokens,
		CreatedAt:       time.Now().UTC(),
	}

	// If this save fails the video row stays behind; the resume path above
	// picks it up on the next submission.
	if err := s.repo.SaveTranscript(ctx, transcript); err != nil {
		logger.Error().Err(err).Msg("Failed to save transcript")
		return nil, err
	}

	logger.Info().
		Str("video_id", video.ID).
		Int("segment_count", len(segments)).
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Msg("Video processed")

	return &models.ProcessResult{Video: video, Transcript: transcript}, nil
}

// resolveConflict handles the duplicate-URL race: another request saved the
// same URL between our dedup check and our save. The winner's row is
// authoritative; if it has no transcript yet, ours is attached to it so the
// work is not wasted.
func (s *service) resolveConflict(
	ctx context.Context,
	logger zerolog.Logger,
	youtubeURL string,
	acquired *videoproc.TranscriptResult,
	segments []models.LogicalSegment,
	segmentUsage tokens.Usage,
) (*models.ProcessResult, error) {
	const op = "VideoService.resolveConflict"

	winner, err := s.repo.FindByURL(ctx, youtubeURL)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to resolve duplicate video")
	}

	transcript, err := s.repo.GetTranscriptByVideoID(ctx, winner.ID)
	if err == nil {
		logger.Info().Str("video_id", winner.ID).
			Msg("Concurrent request finished first, returning its result")
		return &models.ProcessResult{Video: winner, Transcript: transcript}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	usage := acquired.Usage.Add(segmentUsage)
	transcript = &models.Transcript{
		ID:              uuid.New().String(),
		VideoID:         winner.ID,
		Text:            acquired.Text,
		LogicalSegments: segments,
		InputTokens:     usage.InputTokens,
		OutputTokens:    usage.OutputTokens,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.SaveTranscript(ctx, transcript); err != nil {
		return nil, err
	}

	logger.Info().Str("video_id", winner.ID).
		Msg("Attached transcript to concurrently created video")
	return &models.ProcessResult{Video: winner, Transcript: transcript}, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.ProcessResult, error) {
	const op = "VideoService.Get"

	if id == "" {
		return nil, errors.InvalidInput(op, nil, "Video ID is required")
	}

	video, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	transcript, err := s.repo.GetTranscriptByVideoID(ctx, id)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	return &models.ProcessResult{Video: video, Transcript: transcript}, nil
}

func (s *service) History(ctx context.Context) ([]models.HistoryItem, error) {
	const op = "VideoService.History"

	rows, err := s.repo.ListAllWithTranscripts(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.HistoryItem, 0, len(rows))
	for _, row := range rows {
		item := models.HistoryItem{
			Video:      row.Video,
			Transcript: row.Transcript,
		}
		// Costs are derived at read time from the stored token counts.
		if row.Transcript != nil {
			cost := tokens.CalculateCost(row.Transcript.InputTokens, row.Transcript.OutputTokens)
			item.TokenUsage = models.TokenUsageInfo{
				InputTokens:  row.Transcript.InputTokens,
				OutputTokens: row.Transcript.OutputTokens,
				TotalCost:    cost.TotalCost,
			}
		}
		items = append(items, item)
	}

	return items, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	const op = "VideoService.Delete"

	if id == "" {
		return errors.InvalidInput(op, nil, "Video ID is required")
	}

	return s.repo.DeleteByID(ctx, id)
}
