package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoStructuredData means no candidate slice of the completion parsed
// into the requested shape.
var ErrNoStructuredData = errors.New("no structured data in completion")

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// DecodeLoose extracts structured JSON from a completion that may be bare
// JSON, JSON inside a fenced code block, or JSON embedded in prose. It
// tries, in order: a direct parse, each fenced block, and the widest
// bracket-delimited substring. v follows encoding/json conventions.
func DecodeLoose(completion string, v any) error {
	for _, candidate := range candidates(completion) {
		if json.Unmarshal([]byte(candidate), v) == nil {
			return nil
		}
	}
	return ErrNoStructuredData
}

func candidates(s string) []string {
	out := []string{strings.TrimSpace(s)}
	for _, m := range fencedBlock.FindAllStringSubmatch(s, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if sub := bracketSubstring(s, '[', ']'); sub != "" {
		out = append(out, sub)
	}
	if sub := bracketSubstring(s, '{', '}'); sub != "" {
		out = append(out, sub)
	}
	return out
}

// bracketSubstring returns the slice from the first open bracket to the
// last close bracket, or "" if no such span exists.
func bracketSubstring(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
