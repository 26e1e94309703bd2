package video

import (
	"context"
	"time"

	"yt-segments/models"
)

type Service interface {
	// Process runs the full pipeline for a URL: dedup check, metadata and
	// transcript acquisition, segmentation, persistence. Submitting an
	// already-processed URL returns the stored result without any external
	// calls.
	Process(ctx context.Context, youtubeURL string) (*models.ProcessResult, error)

	// Get returns one processed video by ID with its transcript, which is
	// nil when processing never completed.
	Get(ctx context.Context, id string) (*models.ProcessResult, error)

	// History returns all processed videos, newest first, with per-video
	// token usage and derived cost.
	History(ctx context.Context) ([]models.HistoryItem, error)

	// Delete removes a video and, by cascade, its transcript.
	Delete(ctx context.Context, id string) error
}

type Config struct {
	// ProcessTimeout bounds one full pipeline run: download, transcription
	// and segmentation together. Zero means no bound beyond the caller's.
	ProcessTimeout time.Duration `json:"process_timeout"`
}
