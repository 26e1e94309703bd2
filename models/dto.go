package models

// ProcessRequest represents the incoming request for video processing
type ProcessRequest struct {
	YoutubeURL string `json:"youtubeUrl"`
}

// ProcessResult pairs a video with its transcript in API responses
type ProcessResult struct {
	Video      *Video      `json:"video"`
	Transcript *Transcript `json:"transcript"`
}

// TokenUsageInfo reports aggregated usage plus the derived cost for one video
type TokenUsageInfo struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalCost    float64 `json:"totalCost"`
}

// HistoryItem is one row of the processing history. Transcript is nil when
// processing never completed for the video.
type HistoryItem struct {
	Video      *Video         `json:"video"`
	Transcript *Transcript    `json:"transcript"`
	TokenUsage TokenUsageInfo `json:"tokenUsage"`
}
