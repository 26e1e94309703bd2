package video

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"yt-segments/errors"
	"yt-segments/models"
	"yt-segments/repository"
	"yt-segments/tokens"
	"yt-segments/validation"
	"yt-segments/videoproc"

	"github.com/rs/zerolog"
)

type fakeRepo struct {
	videosByURL  map[string]*models.Video
	transcripts  map[string]*models.Transcript // keyed by video ID
	saveErr      error
	transcriptErr error
	videoSaves   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		videosByURL: make(map[string]*models.Video),
		transcripts: make(map[string]*models.Transcript),
	}
}

func (r *fakeRepo) Save(ctx context.Context, video *models.Video) error {
	r.videoSaves++
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, exists := r.videosByURL[video.YoutubeURL]; exists {
		return fmt.Errorf("fake: %w", repository.ErrDuplicateURL)
	}
	r.videosByURL[video.YoutubeURL] = video
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*models.Video, error) {
	for _, v := range r.videosByURL {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, errors.NotFound("fakeRepo.FindByID", nil, "Video not found")
}

func (r *fakeRepo) FindByURL(ctx context.Context, url string) (*models.Video, error) {
	if v, ok := r.videosByURL[url]; ok {
		return v, nil
	}
	return nil, errors.NotFound("fakeRepo.FindByURL", nil, "Video not found")
}

func (r *fakeRepo) DeleteByID(ctx context.Context, id string) error {
	for url, v := range r.videosByURL {
		if v.ID == id {
			delete(r.videosByURL, url)
			delete(r.transcripts, id)
			return nil
		}
	}
	return errors.NotFound("fakeRepo.DeleteByID", nil, "Video not found")
}

func (r *fakeRepo) SaveTranscript(ctx context.Context, transcript *models.Transcript) error {
	if r.transcriptErr != nil {
		return r.transcriptErr
	}
	r.transcripts[transcript.VideoID] = transcript
	return nil
}

func (r *fakeRepo) GetTranscriptByVideoID(ctx context.Context, videoID string) (*models.Transcript, error) {
	if t, ok := r.transcripts[videoID]; ok {
		return t, nil
	}
	return nil, errors.NotFound("fakeRepo.GetTranscriptByVideoID", nil, "Transcript not found")
}

func (r *fakeRepo) ListAllWithTranscripts(ctx context.Context) ([]repository.VideoWithTranscript, error) {
	var items []repository.VideoWithTranscript
	for _, v := range r.videosByURL {
		items = append(items, repository.VideoWithTranscript{
			Video:      v,
			Transcript: r.transcripts[v.ID],
		})
	}
	return items, nil
}

type fakeAcquirer struct {
	info          *videoproc.VideoInfo
	transcript    *videoproc.TranscriptResult
	infoErr       error
	transcriptErr error
	infoCalls     int
	transcriptCalls int
}

func (f *fakeAcquirer) ExtractVideoInfo(ctx context.Context, url string) (*videoproc.VideoInfo, error) {
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

func (f *fakeAcquirer) GetTranscript(ctx context.Context, url string) (*videoproc.TranscriptResult, error) {
	f.transcriptCalls++
	if f.transcriptErr != nil {
		return nil, f.transcriptErr
	}
	return f.transcript, nil
}

type fakeSegmenter struct {
	segments []models.LogicalSegment
	usage    tokens.Usage
	err      error
	calls    int
}

func (f *fakeSegmenter) SegmentTranscript(ctx context.Context, text string) ([]models.LogicalSegment, tokens.Usage, error) {
	f.calls++
	if f.err != nil {
		return nil, tokens.Usage{}, f.err
	}
	return f.segments, f.usage, nil
}

const testURL = "https://www.youtube.com/watch?v=abc123"

func defaultAcquirer() *fakeAcquirer {
	return &fakeAcquirer{
		info: &videoproc.VideoInfo{
			Title:        "A Video",
			Duration:     300,
			ThumbnailURL: "https://example.com/t.jpg",
		},
		transcript: &videoproc.TranscriptResult{
			Text:  "the raw transcript",
			Usage: tokens.Usage{InputTokens: 100, OutputTokens: 50},
		},
	}
}

func defaultSegmenter() *fakeSegmenter {
	return &fakeSegmenter{
		segments: []models.LogicalSegment{
			{Title: "Intro", Text: "the raw"},
			{Title: "Outro", Text: "transcript"},
		},
		usage: tokens.Usage{InputTokens: 30, OutputTokens: 10},
	}
}

func newTestService(repo *fakeRepo, acq *fakeAcquirer, seg *fakeSegmenter) Service {
	return NewService(repo, acq, seg, validation.NewValidator(), Config{}, zerolog.Nop())
}

func TestProcess(t *testing.T) {
	repo := newFakeRepo()
	acq := defaultAcquirer()
	seg := defaultSegmenter()
	svc := newTestService(repo, acq, seg)

	result, err := svc.Process(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Video.Title != "A Video" || result.Video.Duration != 300 {
		t.Errorf("video = %+v", result.Video)
	}
	if result.Video.YoutubeURL != testURL {
		t.Errorf("video url = %q", result.Video.YoutubeURL)
	}
	if result.Transcript.Text != "the raw transcript" {
		t.Errorf("transcript text = %q", result.Transcript.Text)
	}
	if len(result.Transcript.LogicalSegments) != 2 {
		t.Errorf("segments = %+v", result.Transcript.LogicalSegments)
	}

	// Token usage is summed across the transcription and segmentation calls.
	if result.Transcript.InputTokens != 130 {
		t.Errorf("InputTokens = %d, want 130", result.Transcript.InputTokens)
	}
	if result.Transcript.OutputTokens != 60 {
		t.Errorf("OutputTokens = %d, want 60", result.Transcript.OutputTokens)
	}

	if result.Transcript.VideoID != result.Video.ID {
		t.Error("transcript does not reference the saved video")
	}

	saved, err := repo.GetTranscriptByVideoID(context.Background(), result.Video.ID)
	if err != nil {
		t.Fatalf("transcript was not persisted: %v", err)
	}
	if saved.InputTokens != 130 || saved.OutputTokens != 60 {
		t.Errorf("persisted tokens = %d/%d", saved.InputTokens, saved.OutputTokens)
	}
}

func TestProcessCachedResult(t *testing.T) {
	repo := newFakeRepo()
	existing := &models.Video{ID: "vid-1", YoutubeURL: testURL, Title: "Cached"}
	repo.videosByURL[testURL] = existing
	repo.transcripts["vid-1"] = &models.Transcript{ID: "tr-1", VideoID: "vid-1", Text: "cached text"}

	acq := defaultAcquirer()
	seg := defaultSegmenter()
	svc := newTestService(repo, acq, seg)

	result, err := svc.Process(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Video.ID != "vid-1" || result.Transcript.ID != "tr-1" {
		t.Errorf("expected cached pair, got %+v", result)
	}

	// Idempotent resubmission must not touch any external collaborator.
	if acq.infoCalls != 0 || acq.transcriptCalls != 0 {
		t.Errorf("acquirer was called %d/%d times", acq.infoCalls, acq.transcriptCalls)
	}
	if seg.calls != 0 {
		t.Errorf("segmenter was called %d times", seg.calls)
	}
}

func TestProcessInvalidURL(t *testing.T) {
	repo := newFakeRepo()
	acq := defaultAcquirer()
	svc := newTestService(repo, acq, defaultSegmenter())

	_, err := svc.Process(context.Background(), "https://vimeo.com/123")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.Code(err) != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", errors.Code(err))
	}
	if acq.infoCalls != 0 {
		t.Error("acquirer called for invalid URL")
	}
}

func TestProcessAcquisitionFailure(t *testing.T) {
	repo := newFakeRepo()
	acq := defaultAcquirer()
	acq.infoErr = errors.Acquisition("test", fmt.Errorf("video unavailable"), "Failed to extract video information")
	svc := newTestService(repo, acq, defaultSegmenter())

	_, err := svc.Process(context.Background(), testURL)
	if err == nil {
		t.Fatal("expected acquisition error")
	}
	if repo.videoSaves != 0 {
		t.Error("video saved despite acquisition failure")
	}
}

func TestProcessSegmentationFailureAbortsBeforePersist(t *testing.T) {
	repo := newFakeRepo()
	seg := defaultSegmenter()
	seg.err = errors.SegmentationFailed("test", fmt.Errorf("incomplete JSON"), "Failed to create logical segments")
	svc := newTestService(repo, defaultAcquirer(), seg)

	_, err := svc.Process(context.Background(), testURL)
	if err == nil {
		t.Fatal("expected segmentation error")
	}
	if repo.videoSaves != 0 {
		t.Error("video saved despite segmentation failure")
	}
	if len(repo.transcripts) != 0 {
		t.Error("transcript saved despite segmentation failure")
	}
}

func TestProcessTranscriptSaveFailureKeepsVideo(t *testing.T) {
	repo := newFakeRepo()
	repo.transcriptErr = errors.Internal("test", fmt.Errorf("disk full"), "Failed to save transcript")
	svc := newTestService(repo, defaultAcquirer(), defaultSegmenter())

	_, err := svc.Process(context.Background(), testURL)
	if err == nil {
		t.Fatal("expected persistence error")
	}

	// The video row stays behind; no compensating delete.
	if _, ok := repo.videosByURL[testURL]; !ok {
		t.Error("expected video row to survive transcript save failure")
	}
}

func TestProcessResumesVideoWithoutTranscript(t *testing.T) {
	repo := newFakeRepo()
	existing := &models.Video{ID: "vid-1", YoutubeURL: testURL, Title: "Partial"}
	repo.videosByURL[testURL] = existing

	acq := defaultAcquirer()
	svc := newTestService(repo, acq, defaultSegmenter())

	result, err := svc.Process(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Video.ID != "vid-1" {
		t.Errorf("expected existing video reused, got %q", result.Video.ID)
	}
	if acq.infoCalls != 0 {
		t.Error("metadata re-extracted for a video that already has it")
	}
	if acq.transcriptCalls != 1 {
		t.Errorf("transcript acquired %d times, want 1", acq.transcriptCalls)
	}
	if repo.transcripts["vid-1"] == nil {
		t.Error("transcript not attached to the existing video")
	}
	if repo.videoSaves != 0 {
		t.Error("existing video row re-saved")
	}
}

func TestProcessDuplicateRace(t *testing.T) {
	repo := newFakeRepo()

	// Simulate a concurrent request winning the insert between dedup check
	// and save: the fake returns ErrDuplicateURL when the URL appears after
	// the first lookup.
	winner := &models.Video{ID: "winner", YoutubeURL: testURL, Title: "Winner"}
	winnerTranscript := &models.Transcript{ID: "tr-w", VideoID: "winner", Text: "winner text"}

	repo.saveErr = fmt.Errorf("fake: %w", repository.ErrDuplicateURL)
	// FindByURL must miss on the dedup check but hit on conflict resolution.
	lookups := 0
	hooked := &hookedRepo{fakeRepo: repo, beforeFind: func() {
		lookups++
		if lookups > 1 {
			repo.videosByURL[testURL] = winner
			repo.transcripts["winner"] = winnerTranscript
		}
	}}

	svc := NewService(hooked, defaultAcquirer(), defaultSegmenter(), validation.NewValidator(), Config{}, zerolog.Nop())

	result, err := svc.Process(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Video.ID != "winner" || result.Transcript.ID != "tr-w" {
		t.Errorf("expected the winner's pair, got video=%s transcript=%s",
			result.Video.ID, result.Transcript.ID)
	}
}

type hookedRepo struct {
	*fakeRepo
	beforeFind func()
}

func (h *hookedRepo) FindByURL(ctx context.Context, url string) (*models.Video, error) {
	if h.beforeFind != nil {
		h.beforeFind()
	}
	return h.fakeRepo.FindByURL(ctx, url)
}

func TestGet(t *testing.T) {
	repo := newFakeRepo()
	repo.videosByURL[testURL] = &models.Video{ID: "vid-1", YoutubeURL: testURL}
	repo.transcripts["vid-1"] = &models.Transcript{ID: "tr-1", VideoID: "vid-1"}

	svc := newTestService(repo, defaultAcquirer(), defaultSegmenter())

	result, err := svc.Get(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if result.Video.ID != "vid-1" || result.Transcript.ID != "tr-1" {
		t.Errorf("got %+v", result)
	}

	if _, err := svc.Get(context.Background(), "missing"); errors.Code(err) != http.StatusNotFound {
		t.Errorf("missing id should be not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), ""); errors.Code(err) != http.StatusBadRequest {
		t.Errorf("empty id should be invalid input, got %v", err)
	}
}

func TestGetWithoutTranscript(t *testing.T) {
	repo := newFakeRepo()
	repo.videosByURL[testURL] = &models.Video{ID: "vid-1", YoutubeURL: testURL}

	svc := newTestService(repo, defaultAcquirer(), defaultSegmenter())

	result, err := svc.Get(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if result.Transcript != nil {
		t.Errorf("expected nil transcript, got %+v", result.Transcript)
	}
}

func TestHistory(t *testing.T) {
	repo := newFakeRepo()
	repo.videosByURL[testURL] = &models.Video{ID: "vid-1", YoutubeURL: testURL, CreatedAt: time.Now()}
	repo.transcripts["vid-1"] = &models.Transcript{
		ID: "tr-1", VideoID: "vid-1", InputTokens: 1_000_000, OutputTokens: 0,
	}
	repo.videosByURL["https://youtu.be/x"] = &models.Video{ID: "vid-2", YoutubeURL: "https://youtu.be/x"}

	svc := newTestService(repo, defaultAcquirer(), defaultSegmenter())

	items, err := svc.History(context.Background())
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	for _, item := range items {
		switch item.Video.ID {
		case "vid-1":
			if item.TokenUsage.TotalCost != 0.3 {
				t.Errorf("cost = %v, want 0.3", item.TokenUsage.TotalCost)
			}
			if item.TokenUsage.InputTokens != 1_000_000 {
				t.Errorf("input tokens = %d", item.TokenUsage.InputTokens)
			}
		case "vid-2":
			if item.Transcript != nil {
				t.Error("expected nil transcript")
			}
			if item.TokenUsage != (models.TokenUsageInfo{}) {
				t.Errorf("expected zero usage, got %+v", item.TokenUsage)
			}
		}
	}
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	repo.videosByURL[testURL] = &models.Video{ID: "vid-1", YoutubeURL: testURL}

	svc := newTestService(repo, defaultAcquirer(), defaultSegmenter())

	if err := svc.Delete(context.Background(), "vid-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(repo.videosByURL) != 0 {
		t.Error("video not deleted")
	}

	if err := svc.Delete(context.Background(), ""); errors.Code(err) != http.StatusBadRequest {
		t.Errorf("empty id should be invalid input, got %v", err)
	}
}
