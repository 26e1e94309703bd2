package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"yt-segments/errors"
)

const (
	insertVideoQuery = `
        INSERT INTO videos (
            id, url, title, duration, thumbnail_url, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	getVideoQuery = `
        SELECT id, url, title, duration, thumbnail_url, created_at, updated_at
        FROM videos WHERE id = ?
    `

	getVideoByURLQuery = `
        SELECT id, url, title, duration, thumbnail_url, created_at, updated_at
        FROM videos WHERE url = ?
    `

	deleteVideoQuery = `
        DELETE FROM videos WHERE id = ?
    `

	listVideosQuery = `
        SELECT id, url, title, duration, thumbnail_url, created_at, updated_at
        FROM videos ORDER BY created_at DESC
    `

	insertTranscriptQuery = `
        INSERT INTO transcripts (
            id, video_id, text, logical_segments,
            input_tokens, output_tokens, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	getTranscriptByVideoIDQuery = `
        SELECT id, video_id, text, logical_segments,
               input_tokens, output_tokens, created_at
        FROM transcripts WHERE video_id = ? LIMIT 1
    `
)

type PreparedStatements struct {
	insertVideo            *sql.Stmt
	getVideo               *sql.Stmt
	getVideoByURL          *sql.Stmt
	deleteVideo            *sql.Stmt
	listVideos             *sql.Stmt
	insertTranscript       *sql.Stmt
	getTranscriptByVideoID *sql.Stmt
}

func (stmts *PreparedStatements) Prepare(ctx context.Context, db *sql.DB) error {
	const op = "PreparedStatements.Prepare"

	var err error

	if stmts.insertVideo, err = db.PrepareContext(ctx, insertVideoQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare insertVideo statement")
	}

	if stmts.getVideo, err = db.PrepareContext(ctx, getVideoQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare getVideo statement")
	}

	if stmts.getVideoByURL, err = db.PrepareContext(ctx, getVideoByURLQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare getVideoByURL statement")
	}

	if stmts.deleteVideo, err = db.PrepareContext(ctx, deleteVideoQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare deleteVideo statement")
	}

	if stmts.listVideos, err = db.PrepareContext(ctx, listVideosQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare listVideos statement")
	}

	if stmts.insertTranscript, err = db.PrepareContext(ctx, insertTranscriptQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare insertTranscript statement")
	}

	if stmts.getTranscriptByVideoID, err = db.PrepareContext(ctx, getTranscriptByVideoIDQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare getTranscriptByVideoID statement")
	}

	return nil
}

func (stmts *PreparedStatements) Close() error {
	var errs []error

	statements := [...]*sql.Stmt{
		stmts.insertVideo,
		stmts.getVideo,
		stmts.getVideoByURL,
		stmts.deleteVideo,
		stmts.listVideos,
		stmts.insertTranscript,
		stmts.getTranscriptByVideoID,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}

	return nil
}
