package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "yt-segments/errors"
	"yt-segments/models"
	"yt-segments/repository"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo
}

func testVideo(id, url string) *models.Video {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Video{
		ID:           id,
		YoutubeURL:   url,
		Title:        "Test Video",
		Duration:     120,
		ThumbnailURL: "https://example.com/thumb.jpg",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSaveAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	video := testVideo("vid-1", "https://youtube.com/watch?v=abc")
	if err := repo.Save(ctx, video); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	byURL, err := repo.FindByURL(ctx, video.YoutubeURL)
	if err != nil {
		t.Fatalf("FindByURL() error = %v", err)
	}
	if byURL.ID != video.ID || byURL.Title != video.Title || byURL.Duration != 120 {
		t.Errorf("FindByURL() = %+v, want %+v", byURL, video)
	}
	if byURL.ThumbnailURL != video.ThumbnailURL {
		t.Errorf("thumbnail = %q, want %q", byURL.ThumbnailURL, video.ThumbnailURL)
	}

	byID, err := repo.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID.YoutubeURL != video.YoutubeURL {
		t.Errorf("FindByID() url = %q", byID.YoutubeURL)
	}
}

func TestFindMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.FindByURL(context.Background(), "https://youtube.com/watch?v=missing")
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestSaveDuplicateURL(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, testVideo("vid-1", "https://youtube.com/watch?v=dup")); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}

	err := repo.Save(ctx, testVideo("vid-2", "https://youtube.com/watch?v=dup"))
	if !errors.Is(err, repository.ErrDuplicateURL) {
		t.Errorf("expected ErrDuplicateURL, got %v", err)
	}
}

func TestSaveAndGetTranscript(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	video := testVideo("vid-1", "https://youtube.com/watch?v=abc")
	if err := repo.Save(ctx, video); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	transcript := &models.Transcript{
		ID:      "tr-1",
		VideoID: video.ID,
		Text:    "full transcript text",
		LogicalSegments: []models.LogicalSegment{
			{Title: "Intro", Text: "hello"},
			{Title: "Body", Text: "a { b } c"},
		},
		InputTokens:  130,
		OutputTokens: 60,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveTranscript(ctx, transcript); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	got, err := repo.GetTranscriptByVideoID(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetTranscriptByVideoID() error = %v", err)
	}
	if got.Text != transcript.Text {
		t.Errorf("text = %q", got.Text)
	}
	if got.InputTokens != 130 || got.OutputTokens != 60 {
		t.Errorf("tokens = %d/%d, want 130/60", got.InputTokens, got.OutputTokens)
	}
	if len(got.LogicalSegments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got.LogicalSegments))
	}
	if got.LogicalSegments[1].Text != "a { b } c" {
		t.Errorf("segment text = %q", got.LogicalSegments[1].Text)
	}
}

func TestTranscriptWithoutSegments(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	video := testVideo("vid-1", "https://youtube.com/watch?v=abc")
	if err := repo.Save(ctx, video); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	transcript := &models.Transcript{
		ID:        "tr-1",
		VideoID:   video.ID,
		Text:      "segmentless",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.SaveTranscript(ctx, transcript); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	got, err := repo.GetTranscriptByVideoID(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetTranscriptByVideoID() error = %v", err)
	}
	if got.LogicalSegments != nil {
		t.Errorf("expected nil segments, got %+v", got.LogicalSegments)
	}
}

func TestDeleteCascades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	video := testVideo("vid-1", "https://youtube.com/watch?v=abc")
	if err := repo.Save(ctx, video); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.SaveTranscript(ctx, &models.Transcript{
		ID: "tr-1", VideoID: video.ID, Text: "text", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	if err := repo.DeleteByID(ctx, video.ID); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}

	if _, err := repo.FindByID(ctx, video.ID); !apperrors.IsNotFound(err) {
		t.Errorf("video still present after delete: %v", err)
	}
	if _, err := repo.GetTranscriptByVideoID(ctx, video.ID); !apperrors.IsNotFound(err) {
		t.Errorf("transcript survived cascade delete: %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.DeleteByID(context.Background(), "nope")
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestListAllWithTranscripts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	older := testVideo("vid-1", "https://youtube.com/watch?v=one")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testVideo("vid-2", "https://youtube.com/watch?v=two")

	for _, v := range []*models.Video{older, newer} {
		if err := repo.Save(ctx, v); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if err := repo.SaveTranscript(ctx, &models.Transcript{
		ID: "tr-1", VideoID: older.ID, Text: "text", InputTokens: 10, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	items, err := repo.ListAllWithTranscripts(ctx)
	if err != nil {
		t.Fatalf("ListAllWithTranscripts() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	// Newest first.
	if items[0].Video.ID != newer.ID {
		t.Errorf("first item = %s, want %s", items[0].Video.ID, newer.ID)
	}
	if items[0].Transcript != nil {
		t.Error("newer video should have no transcript")
	}
	if items[1].Transcript == nil || items[1].Transcript.InputTokens != 10 {
		t.Errorf("older video transcript = %+v", items[1].Transcript)
	}
}
