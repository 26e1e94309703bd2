package validation

import (
	"net/url"
	"strings"

	"yt-segments/errors"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateURL checks that a submitted URL is a plausible YouTube video URL.
func (v *Validator) ValidateURL(urlStr string) error {
	const op = "Validator.ValidateURL"

	if urlStr == "" {
		return errors.InvalidInput(op, nil, "YouTube URL is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	switch strings.ToLower(parsedURL.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be":
		return nil
	}

	return errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
}
