package gen

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON object in model response")

// extractJSONObject returns the first balanced {...} span in raw. Models
// frequently wrap their JSON in markdown fences or commentary, so the span
// is located structurally rather than by trusting the whole response.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", errNoJSON
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
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
				return raw[start : i+1], nil
			}
		}
	}
	return "", errNoJSON
}

// ParseStoryPanels parses a raw model response into story panels. Invalid
// entries (empty scene, unknown bubble position) are dropped rather than
// failing the batch; an unparseable response fails entirely.
func ParseStoryPanels(raw string) ([]StoryPanel, error) {
	span, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Panels []StoryPanel `json:"panels"`
	}
	decoder := json.NewDecoder(strings.NewReader(span))
	if err := decoder.Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Panels == nil {
		return nil, errors.New("model response has no panels field")
	}

	valid := make([]StoryPanel, 0, len(parsed.Panels))
	for _, panel := range parsed.Panels {
		panel.SceneDescription = strings.TrimSpace(panel.SceneDescription)
		if panel.SceneDescription == "" {
			continue
		}
		switch panel.BubblePosition {
		case "left", "right", "center":
		default:
			continue
		}
		if panel.Dialogue != nil {
			trimmed := strings.TrimSpace(*panel.Dialogue)
			if trimmed == "" {
				panel.Dialogue = nil
			} else {
				panel.Dialogue = &trimmed
			}
		}
		if panel.SoundEffect != nil {
			trimmed := strings.TrimSpace(*panel.SoundEffect)
			if trimmed == "" {
				panel.SoundEffect = nil
			} else {
				panel.SoundEffect = &trimmed
			}
		}
		valid = append(valid, panel)
	}
	return valid, nil
}
