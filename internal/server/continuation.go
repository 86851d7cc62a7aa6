package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
	"github.com/kimhaegyeong/ai-webtoon/internal/gen"
)

type continueEpisodeRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	PanelCount    int    `json:"panel_count" validate:"required,min=1,max=6"`
}

type continueEpisodeResponse struct {
	Panels    []db.Panel `json:"panels"`
	Requested int        `json:"requested"`
	Completed int        `json:"completed"`
}

// handleContinueEpisode runs the AI continuation batch: one story call
// that plans up to N panels, then strictly sequential image renders. Each
// render chains off the previous successful one for visual continuity.
// Individual render failures skip the panel; the batch keeps going.
func (s *Server) handleContinueEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	var req continueEpisodeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if req.PanelCount > s.cfg.MaxStoryPanels {
		writeError(w, http.StatusBadRequest, CodeValidation, "panel_count exceeds the batch limit")
		return
	}

	episode, participants, panels, apiErr := s.loadEpisodeState(r.Context(), episodeID)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	participant := findParticipant(participants, req.ParticipantID)
	if participant == nil {
		writeError(w, http.StatusForbidden, CodeValidation, "unknown participant")
		return
	}
	// Guardrails are checked once for the batch, not per panel.
	if apiErr := s.canAuthor(episode, participants, panels, participant); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	count := req.PanelCount
	if remaining := s.cfg.MaxPanelsPerEpisode - len(panels); count > remaining {
		count = remaining
	}

	existing := make([]gen.StoryPanelContext, 0, len(panels))
	for _, panel := range panels {
		existing = append(existing, gen.StoryPanelContext{
			SceneDescription: panel.SceneDescription,
			Dialogue:         panel.Dialogue,
			SoundEffect:      panel.SoundEffect,
		})
	}
	storyPanels, err := s.story.GeneratePanels(r.Context(), gen.StoryRequest{
		Style:           episode.Style,
		CharacterPrompt: episode.CharacterPrompt,
		ExistingPanels:  existing,
		PanelCount:      count,
		TotalPanelCount: len(panels),
	})
	if err != nil {
		code := CodeAPIError
		if errors.Is(err, gen.ErrTimeout) {
			code = CodeTimeout
		}
		s.log.Error().Err(err).Str("episode_id", episodeID).Msg("story generation failed")
		writeError(w, http.StatusBadGateway, code, "story generation failed")
		return
	}
	// The model may plan fewer panels than asked; render what it gave us.
	if len(storyPanels) > count {
		storyPanels = storyPanels[:count]
	}
	if len(storyPanels) == 0 {
		writeError(w, http.StatusBadGateway, CodeAPIError, "story generation returned no usable panels")
		return
	}

	reference := s.fetchReference(r.Context(), panels)
	orderIndex := len(panels)
	inserted := make([]db.Panel, 0, len(storyPanels))
	for i, storyPanel := range storyPanels {
		imageURL, data, ok := s.renderStoryPanel(r, episode, storyPanel, reference)
		if ok {
			panel := &db.Panel{
				ID:               uuid.NewString(),
				EpisodeID:        episodeID,
				OrderIndex:       orderIndex,
				SceneDescription: storyPanel.SceneDescription,
				Dialogue:         storyPanel.Dialogue,
				SoundEffect:      storyPanel.SoundEffect,
				BubblePosition:   storyPanel.BubblePosition,
				ImageURL:         imageURL,
				CreatedBy:        &participant.ID,
				CreatedAt:        s.now().UTC(),
			}
			if err := s.store.InsertPanel(r.Context(), panel); err != nil {
				s.log.Error().Err(err).Str("episode_id", episodeID).Msg("continuation panel insert failed")
			} else {
				orderIndex++
				inserted = append(inserted, *panel)
				reference = data
				s.advanceTurn(r.Context(), episode, len(participants))
				s.publish(r.Context(), episodeID, &participant.ID, wsEvent{Type: eventPanelInsert, Panel: panel})
			}
		}
		s.publish(r.Context(), episodeID, &participant.ID, wsEvent{
			Type:      eventContinuationProgress,
			Completed: i + 1,
			Total:     len(storyPanels),
		})
	}
	s.publish(r.Context(), episodeID, &participant.ID, wsEvent{Type: eventEpisodeUpdate, Episode: episode})

	s.log.Info().
		Str("episode_id", episodeID).
		Int("requested", req.PanelCount).
		Int("completed", len(inserted)).
		Msg("continuation batch finished")
	writeJSON(w, http.StatusCreated, continueEpisodeResponse{
		Panels:    inserted,
		Requested: req.PanelCount,
		Completed: len(inserted),
	})
}

// renderStoryPanel renders one planned panel. Failures of any kind skip
// the panel; a skipped panel inserts nothing and leaves the reference
// chain untouched.
func (s *Server) renderStoryPanel(r *http.Request, episode *db.Episode, storyPanel gen.StoryPanel, reference []byte) (*string, []byte, bool) {
	result, err := s.images.GeneratePanelImage(r.Context(), gen.ImageRequest{
		Style:            episode.Style,
		CharacterPrompt:  episode.CharacterPrompt,
		SceneDescription: storyPanel.SceneDescription,
		Dialogue:         storyPanel.Dialogue,
		SoundEffect:      storyPanel.SoundEffect,
		BubblePosition:   storyPanel.BubblePosition,
		ReferenceImage:   reference,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("episode_id", episode.ID).Msg("continuation render skipped")
		return nil, reference, false
	}
	ext := "jpg"
	if result.MimeType == "image/png" {
		ext = "png"
	}
	url, err := s.assets.Upload(r.Context(), "panels/"+episode.ID+"/"+uuid.NewString()+"."+ext, result.Data, result.MimeType)
	if err != nil {
		s.log.Warn().Err(err).Str("episode_id", episode.ID).Msg("continuation upload skipped")
		return nil, reference, false
	}
	return &url, result.Data, true
}
