package videoproc

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"yt-segments/errors"
	"yt-segments/services/transcription"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
)

// YTDLP acquires videos through the yt-dlp command line tool. Audio is staged
// in a per-request temp directory that is removed whether or not the request
// succeeds.
type YTDLP struct {
	transcriber transcription.Service
	tempDir     string
	logger      zerolog.Logger
}

type Config struct {
	// TempDir is where downloaded audio is staged. Empty uses the OS default.
	TempDir string
}

func NewYTDLP(transcriber transcription.Service, cfg Config, logger zerolog.Logger) *YTDLP {
	return &YTDLP{
		transcriber: transcriber,
		tempDir:     cfg.TempDir,
		logger:      logger,
	}
}

type videoMetadata struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
}

func (y *YTDLP) ExtractVideoInfo(ctx context.Context, url string) (*VideoInfo, error) {
	const op = "YTDLP.ExtractVideoInfo"
	logger := y.logger.With().Str("operation", op).Str("url", url).Logger()

	dl := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		SkipDownload()

	result, err := dl.Run(ctx, url)
	if err != nil {
		logger.Error().Err(err).Msg("Metadata extraction failed")
		return nil, errors.Acquisition(op, err, "Failed to extract video information")
	}

	var metadata videoMetadata
	if err := json.Unmarshal([]byte(result.Stdout), &metadata); err != nil {
		logger.Error().Err(err).Msg("Failed to parse yt-dlp metadata")
		return nil, errors.Acquisition(op, err, "Failed to parse video metadata")
	}

	logger.Info().
		Str("title", metadata.Title).
		Float64("duration", metadata.Duration).
		Msg("Video metadata extracted")

	return &VideoInfo{
		Title:        metadata.Title,
		Duration:     int(math.Floor(metadata.Duration)),
		ThumbnailURL: metadata.Thumbnail,
	}, nil
}

func (y *YTDLP) GetTranscript(ctx context.Context, url string) (*TranscriptResult, error) {
	const op = "YTDLP.GetTranscript"
	logger := y.logger.With().Str("operation", op).Str("url", url).Logger()

	workDir, err := os.MkdirTemp(y.tempDir, "audio-")
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to create staging directory")
	}
	defer os.RemoveAll(workDir)

	dl := ytdlp.New().
		Format("bestaudio").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("10").
		NoPlaylist().
		Output(filepath.Join(workDir, "%(id)s.%(ext)s"))

	if _, err := dl.Run(ctx, url); err != nil {
		logger.Error().Err(err).Msg("Audio download failed")
		return nil, errors.Acquisition(op, err, "Failed to download video audio")
	}

	audioFile, err := findAudioFile(workDir)
	if err != nil {
		return nil, errors.Acquisition(op, err, "Failed to find downloaded audio file")
	}

	audio, err := os.ReadFile(audioFile)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to read downloaded audio")
	}

	logger.Info().
		Int("audio_bytes", len(audio)).
		Str("file", filepath.Base(audioFile)).
		Msg("Audio downloaded")

	text, usage, err := y.transcriber.Transcribe(ctx, audio, MIMETypeFor(audioFile))
	if err != nil {
		return nil, err
	}

	return &TranscriptResult{Text: text, Usage: usage}, nil
}

var audioExtensions = []string{".mp3", ".webm", ".m4a", ".wav"}

func findAudioFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, known := range audioExtensions {
			if ext == known {
				return filepath.Join(dir, entry.Name()), nil
			}
		}
	}
	return "", os.ErrNotExist
}

// MIMETypeFor maps an audio file extension to its MIME type. Unrecognized
// extensions fall back to audio/mp3.
func MIMETypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	case ".m4a":
		return "audio/mp4"
	default:
		return "audio/mp3"
	}
}
