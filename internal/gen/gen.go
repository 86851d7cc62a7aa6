package gen

import "errors"

// Sentinel errors shared by the story and image generators. Handlers map
// these onto the API error codes surfaced to clients.
var (
	// ErrContentFilter means the provider rejected the prompt on safety
	// grounds. The submission is terminal; nothing may be persisted.
	ErrContentFilter = errors.New("generation rejected by content filter")
	// ErrTimeout means the generation call exceeded its deadline. The
	// underlying remote call may still complete; do not resubmit blindly.
	ErrTimeout = errors.New("generation timed out")
)

// StoryPanelContext is one already-authored panel, passed to the story
// generator oldest first.
type StoryPanelContext struct {
	SceneDescription string
	Dialogue         *string
	SoundEffect      *string
}

// StoryPanel is one continuation panel returned by the story generator.
type StoryPanel struct {
	SceneDescription string  `json:"sceneDescription"`
	Dialogue         *string `json:"dialogue"`
	SoundEffect      *string `json:"soundEffect"`
	BubblePosition   string  `json:"bubblePosition"`
}

type StoryRequest struct {
	Style           string
	CharacterPrompt string
	ExistingPanels  []StoryPanelContext
	PanelCount      int
	TotalPanelCount int
}

type ImageRequest struct {
	Style            string
	CharacterPrompt  string
	SceneDescription string
	Dialogue         *string
	SoundEffect      *string
	BubblePosition   string
	// ReferenceImage holds JPEG bytes of the previous rendered panel,
	// or nil when no continuity reference is available.
	ReferenceImage []byte
}

type ImageResult struct {
	Data     []byte
	MimeType string
}
