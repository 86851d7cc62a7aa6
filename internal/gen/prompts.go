package gen

import (
	"fmt"
	"math"
	"strings"
)

var stylePrefixes = map[string]string{
	"webtoon":  "Korean webtoon style, clean line art, vibrant colors, vertical comic panel,",
	"four_cut": "4-cut manga style, simple expressive characters, black and white with tones,",
	"shoujo":   "Shoujo manga style, delicate lines, floral accents, sparkles, emotional expression,",
	"action":   "Action manga style, dynamic poses, speed lines, bold inking, high contrast,",
	"chibi":    "Chibi style, super deformed cute characters, big heads, small bodies, pastel colors,",
	"noir":     "Noir manga style, heavy shadows, monochrome, dramatic lighting, film noir atmosphere,",
}

var styleContext = map[string]string{
	"webtoon":  "full-color Korean webtoon — natural conversational dialogue",
	"four_cut": "4-panel black-and-white manga — short punchy dialogue, comedic timing",
	"shoujo":   "shoujo manga with flowery romantic atmosphere — emotional, lyrical, soft expressions",
	"action":   "action manga with speed lines and dynamic composition — short intense dialogue, powerful sound effects",
	"chibi":    "super-deformed chibi style with pastel colors — cute, playful, exaggerated emotions",
	"noir":     "black-and-white noir with heavy shadows — dry, terse, moody narration",
}

// EpisodeStyles lists the accepted style presets.
func EpisodeStyles() []string {
	return []string{"webtoon", "four_cut", "shoujo", "action", "chibi", "noir"}
}

func IsEpisodeStyle(style string) bool {
	_, ok := stylePrefixes[style]
	return ok
}

// BuildImagePrompt assembles the text prompt for a single panel render.
func BuildImagePrompt(req ImageRequest) string {
	prefix, ok := stylePrefixes[req.Style]
	if !ok {
		prefix = req.Style + ","
	}
	parts := []string{
		prefix,
		fmt.Sprintf("Character: %s.", req.CharacterPrompt),
		fmt.Sprintf("Scene: %s.", req.SceneDescription),
	}
	if req.Dialogue != nil && *req.Dialogue != "" {
		parts = append(parts, fmt.Sprintf("Speech bubble (%s): %q", req.BubblePosition, *req.Dialogue))
	}
	if req.SoundEffect != nil && *req.SoundEffect != "" {
		parts = append(parts, fmt.Sprintf("Sound effect: %s", *req.SoundEffect))
	}
	parts = append(parts, "Vertical aspect ratio 3:4. Single comic panel. No panel borders visible in final image.")
	return strings.Join(parts, " ")
}

// narrativePhase partitions the story into four phases by position:
// setup <=25%, development <=65%, climax <=85%, resolution beyond.
func narrativePhase(currentPanel, estimatedTotal int) string {
	if estimatedTotal < 1 {
		estimatedTotal = 1
	}
	position := func(ratio float64) int {
		return int(math.Ceil(float64(estimatedTotal) * ratio))
	}
	switch {
	case currentPanel <= position(0.25):
		return "setup (introduce the world and characters, establish the mood)"
	case currentPanel <= position(0.65):
		return "development (deepen the conflict, raise the emotional stakes)"
	case currentPanel <= position(0.85):
		return "climax (the most intense scene of the story)"
	default:
		return "resolution (release the tension, leave a lingering note)"
	}
}

func buildStoryPrompt(req StoryRequest) string {
	context, ok := styleContext[req.Style]
	if !ok {
		context = req.Style
	}

	currentPanel := len(req.ExistingPanels) + 1
	total := req.TotalPanelCount
	if total == 0 {
		total = len(req.ExistingPanels)
	}
	estimatedTotal := total + req.PanelCount
	phase := narrativePhase(currentPanel, estimatedTotal)

	var existing strings.Builder
	for i, panel := range req.ExistingPanels {
		fmt.Fprintf(&existing, "[panel %d] scene: %s", i+1, panel.SceneDescription)
		if panel.Dialogue != nil && *panel.Dialogue != "" {
			fmt.Fprintf(&existing, " | dialogue: %q", *panel.Dialogue)
		}
		if panel.SoundEffect != nil && *panel.SoundEffect != "" {
			fmt.Fprintf(&existing, " | sound effect: %s", *panel.SoundEffect)
		}
		existing.WriteString("\n")
	}

	return fmt.Sprintf(`You are a webtoon story writer. Generate %d continuation panel(s) for the following story.

Style: %s
Character: %s

Story position: Currently at panel %d, estimated total %d panels.
Narrative phase: %s

Existing panels (read carefully to maintain character emotional continuity):
%s
Rules:
- Dialogue must be 40 characters or fewer. If no dialogue is needed, use null.
- Sound effects should be brief onomatopoeia or null.
- Match the tone of the style: %s
- Continue naturally from the last panel's emotional state and character situation.
- Each panel must advance the story according to the current narrative phase: %s

Respond with ONLY valid JSON (no markdown, no explanation):
{
  "panels": [
    {
      "sceneDescription": "scene description (10-100 chars)",
      "dialogue": "dialogue (max 40 chars) or null",
      "soundEffect": "sound effect or null",
      "bubblePosition": "left" or "right" or "center"
    }
  ]
}`,
		req.PanelCount, context, req.CharacterPrompt,
		currentPanel, estimatedTotal, phase,
		existing.String(), context, phase)
}
