// Package scenes turns opaque script content into renderable scenes.
// Scripts arrive either as a JSON scene array (structured generator output)
// or as plain text, one narration line per scene.
package scenes

import (
	"encoding/json"
	"strings"

	"jubily/internal/pkg/errors"
)

type Scene struct {
	Index        int     `json:"index"`
	Narration    string  `json:"narration"`
	Caption      string  `json:"caption"`
	VisualPrompt string  `json:"visual_prompt,omitempty"`
	Duration     float64 `json:"duration"`
}

const maxCaptionLen = 80

// Extract parses script content into scenes. JSON content is preferred;
// anything else is split into narration lines with an estimated duration.
func Extract(content string) ([]Scene, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.Validation("script content is empty")
	}

	if parsed, ok := tryJSON(content); ok {
		if len(parsed) == 0 {
			return nil, errors.Validation("script JSON contains no scenes")
		}
		return parsed, nil
	}

	return fromLines(content)
}

// tryJSON accepts either a bare scene array or an envelope {"scenes": [...]}.
func tryJSON(content string) ([]Scene, bool) {
	if !strings.HasPrefix(content, "[") && !strings.HasPrefix(content, "{") {
		return nil, false
	}

	var list []Scene
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return normalize(list), true
	}

	var envelope struct {
		Scenes []Scene `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err == nil && envelope.Scenes != nil {
		return normalize(envelope.Scenes), true
	}

	return nil, false
}

func normalize(in []Scene) []Scene {
	out := make([]Scene, 0, len(in))
	for _, s := range in {
		s.Narration = strings.TrimSpace(s.Narration)
		if s.Narration == "" {
			continue
		}
		if s.Caption == "" {
			s.Caption = shorten(s.Narration)
		}
		if s.Duration <= 0 {
			s.Duration = estimateDuration(s.Narration)
		}
		s.Index = len(out) + 1
		out = append(out, s)
	}
	return out
}

func fromLines(content string) ([]Scene, error) {
	var out []Scene
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, Scene{
			Index:     len(out) + 1,
			Narration: line,
			Caption:   shorten(line),
			Duration:  estimateDuration(line),
		})
	}
	if len(out) == 0 {
		return nil, errors.Validation("no scenes could be extracted from script")
	}
	return out, nil
}

// estimateDuration approximates seconds of narration at roughly 12 chars/s,
// with a 3 second floor so captions stay readable.
func estimateDuration(narration string) float64 {
	d := float64(len(narration)) / 12.0
	if d < 3 {
		return 3
	}
	return float64(int(d + 0.999))
}

func shorten(s string) string {
	if len(s) <= maxCaptionLen {
		return s
	}
	cut := strings.LastIndex(s[:maxCaptionLen], " ")
	if cut <= 0 {
		cut = maxCaptionLen
	}
	return s[:cut] + "..."
}
