package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yt-segments/errors"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
    id TEXT PRIMARY KEY,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    duration INTEGER NOT NULL DEFAULT 0,
    thumbnail_url TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS transcripts (
    id TEXT PRIMARY KEY,
    video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    logical_segments TEXT,
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_videos_url ON videos(url);
CREATE INDEX IF NOT EXISTS idx_transcripts_video_id ON transcripts(video_id);
`

// DB wraps the sqlite handle together with its prepared statements.
type DB struct {
	*sql.DB
	statements *PreparedStatements
}

func Open(ctx context.Context, dbPath string) (*DB, error) {
	const op = "sqlite.Open"

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Internal(op, err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to open database")
	}

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := execSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	statements := &PreparedStatements{}
	if err := statements.Prepare(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, statements: statements}, nil
}

func (db *DB) Close() error {
	if err := db.statements.Close(); err != nil {
		db.DB.Close()
		return err
	}
	return db.DB.Close()
}

func configurePragmas(db *sql.DB) error {
	const op = "sqlite.configurePragmas"

	// foreign_keys is load-bearing: transcript cascade deletion depends on it.
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -2000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to set pragma: %s", pragma))
		}
	}

	return nil
}

func execSchema(db *sql.DB) error {
	const op = "sqlite.execSchema"

	tx, err := db.Begin()
	if err != nil {
		return errors.Internal(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Internal(
				op,
				err,
				fmt.Sprintf("failed to execute schema statement: %s", stmt),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal(op, err, "failed to commit schema transaction")
	}

	return nil
}
