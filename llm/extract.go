package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// The model is asked for bare JSON but routinely wraps it in markdown fences,
// prepends commentary, or truncates mid-object on long transcripts. ExtractJSON
// and FallbackText turn those replies into something usable: ExtractJSON finds
// a parseable object or reports why it could not, FallbackText recovers a
// best-effort transcript string when structure is beyond saving.

var (
	// ErrNoJSONObject means the response contains no opening brace at all.
	ErrNoJSONObject = errors.New("no JSON object found in response")

	// ErrIncompleteJSON means an object starts but its brace depth never
	// returns to zero, i.e. the response was cut off mid-object.
	ErrIncompleteJSON = errors.New("incomplete JSON object in response")
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?)\\s*```")

// ExtractJSON extracts a well-formed JSON object from a free-text model
// response. It tries, in order: the interior of a fenced code block, then a
// brace-balanced substring starting at the first '{' in the full text. A
// candidate is only returned if it actually parses.
func ExtractJSON(response string) (string, error) {
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		if candidate, ok := completeObject(m[1]); ok {
			return candidate, nil
		}
		// Fenced interior was truncated or malformed; fall through and scan
		// the full response instead.
	}

	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", ErrNoJSONObject
	}

	end := balancedObjectEnd(response[start:])
	if end == -1 {
		return "", ErrIncompleteJSON
	}

	candidate := response[start : start+end+1]
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return "", fmt.Errorf("parsing extracted object: %w", err)
	}
	return candidate, nil
}

// completeObject returns the balanced object at the start of text if it is
// valid JSON.
func completeObject(text string) (string, bool) {
	end := balancedObjectEnd(text)
	if end == -1 {
		return "", false
	}
	candidate := text[:end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// balancedObjectEnd scans text for the index where brace depth returns to
// zero. Braces inside string literals do not count; the scanner tracks quote
// and escape state so a transcript value like "a { b } c" cannot end the
// object early. Returns -1 when the object never closes.
func balancedObjectEnd(text string) int {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var (
	closedTextRe      = regexp.MustCompile(`"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	openTextRe        = regexp.MustCompile(`"text"\s*:\s*"((?:[^"\\]|\\.)*)`)
	jsonFenceRe       = regexp.MustCompile("```json\\s*")
	fenceRe           = regexp.MustCompile("```\\s*")
	leadingScaffoldRe = regexp.MustCompile(`(?s)^\s*\{.*?"text"\s*:\s*"`)
	trailingQuoteRe   = regexp.MustCompile(`(?s)".*$`)
	longQuotedRunRe   = regexp.MustCompile(`"([^"]{100,})"`)
)

// FallbackText recovers transcript text from a response whose JSON could not
// be extracted or parsed. Tiers, first match wins:
//
//  1. a fully closed "text" field value anywhere in the response
//  2. an unterminated "text" value (response truncated inside the string)
//  3. the response with fences and the JSON scaffold around "text" stripped
//  4. if braces survive tier 3, the first quoted run of 100+ characters
//  5. the raw response unmodified
//
// It always returns some string; losing structure here is acceptable, losing
// the transcript is not.
func FallbackText(response string) string {
	if m := closedTextRe.FindStringSubmatch(response); m != nil {
		return unescapeText(m[1])
	}

	if m := openTextRe.FindStringSubmatch(response); m != nil {
		return unescapeText(m[1])
	}

	clean := jsonFenceRe.ReplaceAllString(response, "")
	clean = fenceRe.ReplaceAllString(clean, "")
	clean = leadingScaffoldRe.ReplaceAllString(clean, "")
	clean = trailingQuoteRe.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	if strings.ContainsAny(clean, "{}") {
		if m := longQuotedRunRe.FindStringSubmatch(response); m != nil {
			return unescapeText(m[1])
		}
	}

	if clean == "" {
		return response
	}
	return clean
}

func unescapeText(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	return s
}
