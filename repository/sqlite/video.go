package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"yt-segments/errors"
	"yt-segments/models"
	"yt-segments/repository"

	"golang.org/x/sync/errgroup"
)

// transcriptFetchers caps concurrent per-video transcript lookups when
// building the history listing.
const transcriptFetchers = 8

type Repository struct {
	db *DB
}

func NewRepository(db *DB) (*Repository, error) {
	return &Repository{db: db}, nil
}

func (r *Repository) Save(ctx context.Context, video *models.Video) error {
	const op = "SQLiteRepository.Save"

	for i := 0; i < 3; i++ { // Simple retry logic
		err := r.save(ctx, video)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, repository.ErrDuplicateURL)
		}
		if !isLockError(err) {
			return errors.Internal(op, err, "Failed to save video")
		}
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return errors.Internal(op, nil, "Failed after retries")
}

func (r *Repository) save(ctx context.Context, video *models.Video) error {
	_, err := r.db.statements.insertVideo.ExecContext(ctx,
		video.ID,
		video.YoutubeURL,
		video.Title,
		video.Duration,
		nullableString(video.ThumbnailURL),
		video.CreatedAt,
		video.UpdatedAt,
	)
	return err
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Video, error) {
	const op = "SQLiteRepository.FindByID"
	return r.scanVideo(op, r.db.statements.getVideo.QueryRowContext(ctx, id))
}

func (r *Repository) FindByURL(ctx context.Context, url string) (*models.Video, error) {
	const op = "SQLiteRepository.FindByURL"
	return r.scanVideo(op, r.db.statements.getVideoByURL.QueryRowContext(ctx, url))
}

func (r *Repository) scanVideo(op string, row *sql.Row) (*models.Video, error) {
	video := &models.Video{}
	var thumbnail sql.NullString

	err := row.Scan(
		&video.ID,
		&video.YoutubeURL,
		&video.Title,
		&video.Duration,
		&thumbnail,
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Video not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query video")
	}

	video.ThumbnailURL = thumbnail.String
	return video, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	const op = "SQLiteRepository.DeleteByID"

	// Transcripts go with the video via the cascading foreign key.
	result, err := r.db.statements.deleteVideo.ExecContext(ctx, id)
	if err != nil {
		return errors.Internal(op, err, "Failed to delete video")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal(op, err, "Failed to check delete result")
	}
	if affected == 0 {
		return errors.NotFound(op, nil, "Video not found")
	}

	return nil
}

func (r *Repository) SaveTranscript(ctx context.Context, transcript *models.Transcript) error {
	const op = "SQLiteRepository.SaveTranscript"

	var segmentsJSON sql.NullString
	if transcript.LogicalSegments != nil {
		data, err := json.Marshal(transcript.LogicalSegments)
		if err != nil {
			return errors.Internal(op, err, "Failed to encode logical segments")
		}
		segmentsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.statements.insertTranscript.ExecContext(ctx,
		transcript.ID,
		transcript.VideoID,
		transcript.Text,
		segmentsJSON,
		transcript.InputTokens,
		transcript.OutputTokens,
		transcript.CreatedAt,
	)
	if err != nil {
		return errors.Internal(op, err, "Failed to save transcript")
	}

	return nil
}

func (r *Repository) GetTranscriptByVideoID(ctx context.Context, videoID string) (*models.Transcript, error) {
	const op = "SQLiteRepository.GetTranscriptByVideoID"

	transcript := &models.Transcript{}
	var segmentsJSON sql.NullString

	err := r.db.statements.getTranscriptByVideoID.QueryRowContext(ctx, videoID).Scan(
		&transcript.ID,
		&transcript.VideoID,
		&transcript.Text,
		&segmentsJSON,
		&transcript.InputTokens,
		&transcript.OutputTokens,
		&transcript.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Transcript not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query transcript")
	}

	if segmentsJSON.Valid {
		if err := json.Unmarshal([]byte(segmentsJSON.String), &transcript.LogicalSegments); err != nil {
			return nil, errors.Internal(op, err, "Failed to decode logical segments")
		}
	}

	return transcript, nil
}

func (r *Repository) ListAllWithTranscripts(ctx context.Context) ([]repository.VideoWithTranscript, error) {
	const op = "SQLiteRepository.ListAllWithTranscripts"

	rows, err := r.db.statements.listVideos.QueryContext(ctx)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to list videos")
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video := &models.Video{}
		var thumbnail sql.NullString
		if err := rows.Scan(
			&video.ID,
			&video.YoutubeURL,
			&video.Title,
			&video.Duration,
			&thumbnail,
			&video.CreatedAt,
			&video.UpdatedAt,
		); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan video row")
		}
		video.ThumbnailURL = thumbnail.String
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate video rows")
	}

	items := make([]repository.VideoWithTranscript, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transcriptFetchers)

	for i, video := range videos {
		g.Go(func() error {
			transcript, err := r.GetTranscriptByVideoID(gctx, video.ID)
			if err != nil && !errors.IsNotFound(err) {
				return err
			}
			items[i] = repository.VideoWithTranscript{
				Video:      video,
				Transcript: transcript,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
