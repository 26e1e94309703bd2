package validation

import (
	"net/http"
	"testing"

	"yt-segments/errors"
)

func TestValidateURL(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"valid short url", "https://youtu.be/dQw4w9WgXcQ", false},
		{"valid http", "http://youtube.com/watch?v=abc", false},
		{"empty url", "", true},
		{"missing scheme", "youtube.com/watch?v=abc", true},
		{"ftp scheme", "ftp://youtube.com/watch?v=abc", true},
		{"mobile host", "https://m.youtube.com/watch?v=abc", false},
		{"other platform", "https://vimeo.com/123456", true},
		{"lookalike host", "https://youtube.com.evil.com/watch?v=abc", true},
		{"garbage", "http://%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil && errors.Code(err) != http.StatusBadRequest {
				t.Errorf("validation errors must map to 400, got %d", errors.Code(err))
			}
		})
	}
}
