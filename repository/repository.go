package repository

import (
	"context"
	"errors"

	"yt-segments/models"
)

// ErrDuplicateURL is returned by Save when another video already holds the
// URL. The store enforces uniqueness; callers resolve the race by re-reading.
var ErrDuplicateURL = errors.New("video with this URL already exists")

// VideoWithTranscript is one history row. Transcript is nil when processing
// never finished for the video.
type VideoWithTranscript struct {
	Video      *models.Video
	Transcript *models.Transcript
}

type VideoRepository interface {
	Save(ctx context.Context, video *models.Video) error
	FindByID(ctx context.Context, id string) (*models.Video, error)
	FindByURL(ctx context.Context, url string) (*models.Video, error)
	DeleteByID(ctx context.Context, id string) error
	SaveTranscript(ctx context.Context, transcript *models.Transcript) error
	GetTranscriptByVideoID(ctx context.Context, videoID string) (*models.Transcript, error)
	ListAllWithTranscripts(ctx context.Context) ([]VideoWithTranscript, error)
}
