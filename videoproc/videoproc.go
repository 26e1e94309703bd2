// Package videoproc acquires video metadata and transcripts from external
// platforms. Backends are interchangeable behind the Acquirer interface; the
// default one shells out to yt-dlp and feeds the downloaded audio to the
// transcription service.
package videoproc

import (
	"context"

	"yt-segments/tokens"
)

// VideoInfo is the metadata needed to create a Video record.
type VideoInfo struct {
	Title        string
	Duration     int
	ThumbnailURL string
}

// TranscriptResult carries the raw transcript text and the token usage of the
// model calls that produced it.
type TranscriptResult struct {
	Text  string
	Usage tokens.Usage
}

type Acquirer interface {
	ExtractVideoInfo(ctx context.Context, url string) (*VideoInfo, error)
	GetTranscript(ctx context.Context, url string) (*TranscriptResult, error)
}
