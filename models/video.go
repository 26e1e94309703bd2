package models

import (
	"time"
)

// Video is one processed YouTube video. The URL is the natural key: a URL is
// processed at most once and later submissions return the stored result.
type Video struct {
	ID           string    `json:"id"`
	YoutubeURL   string    `json:"youtubeUrl"`
	Title        string    `json:"title"`
	Duration     int       `json:"duration"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LogicalSegment is a titled span of transcript text grouped by topic.
// Order matters for display; the model decides the boundaries.
type LogicalSegment struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Transcript holds the full transcript for a video plus the token counts
// aggregated across every model call that produced it.
type Transcript struct {
	ID              string           `json:"id"`
	VideoID         string           `json:"videoId"`
	Text            string           `json:"text"`
	LogicalSegments []LogicalSegment `json:"logicalSegments,omitempty"`
	InputTokens     int              `json:"inputTokens"`
	OutputTokens    int              `json:"outputTokens"`
	CreatedAt       time.Time        `json:"createdAt"`
}
