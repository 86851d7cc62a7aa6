package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
	"github.com/kimhaegyeong/ai-webtoon/internal/gen"
)

type createPanelRequest struct {
	ParticipantID    string  `json:"participant_id" validate:"required"`
	SceneDescription string  `json:"scene_description" validate:"required,max=500"`
	Dialogue         *string `json:"dialogue" validate:"omitempty,max=200"`
	SoundEffect      *string `json:"sound_effect" validate:"omitempty,max=100"`
	BubblePosition   string  `json:"bubble_position" validate:"required,bubble_position"`
}

type generationInfo struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
}

type panelResponse struct {
	Panel      db.Panel       `json:"panel"`
	Generation generationInfo `json:"generation"`
}

func (s *Server) handleCreatePanel(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	var req createPanelRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.SceneDescription = strings.TrimSpace(req.SceneDescription)
	req.Dialogue = trimOptional(req.Dialogue)
	req.SoundEffect = trimOptional(req.SoundEffect)
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
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
	if apiErr := s.canAuthor(episode, participants, panels, participant); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	reference := s.fetchReference(r.Context(), panels)
	imageURL, failCode, genErr := s.renderAndUpload(r.Context(), episodeID, gen.ImageRequest{
		Style:            episode.Style,
		CharacterPrompt:  episode.CharacterPrompt,
		SceneDescription: req.SceneDescription,
		Dialogue:         req.Dialogue,
		SoundEffect:      req.SoundEffect,
		BubblePosition:   req.BubblePosition,
		ReferenceImage:   reference,
	})
	// A content-filter rejection is terminal: nothing is persisted and the
	// author must rewrite the scene. Every other failure degrades to a
	// panel without an image.
	if errors.Is(genErr, gen.ErrContentFilter) {
		writeError(w, http.StatusBadRequest, CodeContentFilter, "scene was rejected by the content filter")
		return
	}

	panel := &db.Panel{
		ID:               uuid.NewString(),
		EpisodeID:        episodeID,
		OrderIndex:       len(panels),
		SceneDescription: req.SceneDescription,
		Dialogue:         req.Dialogue,
		SoundEffect:      req.SoundEffect,
		BubblePosition:   req.BubblePosition,
		ImageURL:         imageURL,
		CreatedBy:        &participant.ID,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.InsertPanel(r.Context(), panel); err != nil {
		s.log.Error().Err(err).Str("episode_id", episodeID).Msg("panel insert failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to save panel")
		return
	}
	s.advanceTurn(r.Context(), episode, len(participants))

	s.log.Info().
		Str("episode_id", episodeID).
		Str("panel_id", panel.ID).
		Int("order_index", panel.OrderIndex).
		Bool("has_image", imageURL != nil).
		Msg("panel created")
	s.publish(r.Context(), episodeID, &participant.ID, wsEvent{Type: eventPanelInsert, Panel: panel})
	s.publish(r.Context(), episodeID, &participant.ID, wsEvent{Type: eventEpisodeUpdate, Episode: episode})

	resp := panelResponse{Panel: *panel, Generation: generationInfo{Status: "ok"}}
	if imageURL == nil {
		resp.Generation = generationInfo{Status: "failed", Code: failCode}
	}
	writeJSON(w, http.StatusCreated, resp)
}

type retryPanelImageRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
}

// handleRetryPanelImage re-runs image generation for a panel that was
// persisted without one. The stored scene metadata is authoritative; the
// text is never edited on retry.
func (s *Server) handleRetryPanelImage(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	panelID := r.PathValue("panelID")
	var req retryPanelImageRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	episode, participants, panels, apiErr := s.loadEpisodeState(r.Context(), episodeID)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if findParticipant(participants, req.ParticipantID) == nil {
		writeError(w, http.StatusForbidden, CodeValidation, "unknown participant")
		return
	}
	panel, err := s.store.GetPanel(r.Context(), episodeID, panelID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeValidation, "panel not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load panel")
		return
	}
	if panel.ImageURL != nil {
		writeError(w, http.StatusConflict, CodeValidation, "panel already has an image")
		return
	}

	// Continuity reference comes from the nearest earlier panel that has
	// a rendered image.
	var prior []db.Panel
	for _, p := range panels {
		if p.OrderIndex < panel.OrderIndex {
			prior = append(prior, p)
		}
	}
	reference := s.fetchReference(r.Context(), prior)

	imageURL, failCode, genErr := s.renderAndUpload(r.Context(), episodeID, gen.ImageRequest{
		Style:            episode.Style,
		CharacterPrompt:  episode.CharacterPrompt,
		SceneDescription: panel.SceneDescription,
		Dialogue:         panel.Dialogue,
		SoundEffect:      panel.SoundEffect,
		BubblePosition:   panel.BubblePosition,
		ReferenceImage:   reference,
	})
	if errors.Is(genErr, gen.ErrContentFilter) {
		writeError(w, http.StatusBadRequest, CodeContentFilter, "scene was rejected by the content filter")
		return
	}
	if imageURL == nil {
		writeError(w, http.StatusBadGateway, failCode, "image generation failed")
		return
	}

	if err := s.store.UpdatePanelImage(r.Context(), panel.ID, *imageURL); err != nil {
		s.log.Error().Err(err).Str("panel_id", panel.ID).Msg("panel image update failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to save panel image")
		return
	}
	panel.ImageURL = imageURL

	s.log.Info().Str("episode_id", episodeID).Str("panel_id", panel.ID).Msg("panel image retried")
	s.publish(r.Context(), episodeID, &req.ParticipantID, wsEvent{Type: eventPanelUpdate, Panel: panel})
	writeJSON(w, http.StatusOK, panelResponse{Panel: *panel, Generation: generationInfo{Status: "ok"}})
}

// loadEpisodeState fetches the episode with its roster and panels, the
// working set every authoring handler needs.
func (s *Server) loadEpisodeState(ctx context.Context, episodeID string) (*db.Episode, []db.Participant, []db.Panel, *apiError) {
	episode, err := s.store.GetEpisode(ctx, episodeID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil, errValidation(404, "episode not found")
	}
	if err != nil {
		return nil, nil, nil, &apiError{Status: 500, Code: CodeDB, Message: "failed to load episode"}
	}
	participants, err := s.store.ListParticipants(ctx, episodeID)
	if err != nil {
		return nil, nil, nil, &apiError{Status: 500, Code: CodeDB, Message: "failed to load participants"}
	}
	panels, err := s.store.ListPanels(ctx, episodeID)
	if err != nil {
		return nil, nil, nil, &apiError{Status: 500, Code: CodeDB, Message: "failed to load panels"}
	}
	return episode, participants, panels, nil
}

// advanceTurn moves the pointer to the next participant and persists it.
// A persistence failure leaves the pointer stale rather than failing the
// submission that already committed.
func (s *Server) advanceTurn(ctx context.Context, episode *db.Episode, participantCount int) {
	episode.CurrentTurnIndex = nextTurnIndex(episode.CurrentTurnIndex, participantCount)
	if err := s.store.UpdateEpisodeTurn(ctx, episode.ID, episode.CurrentTurnIndex); err != nil {
		s.log.Error().Err(err).Str("episode_id", episode.ID).Msg("turn advance failed")
	}
}

// renderAndUpload runs image generation and stores the result. On
// success it returns the public URL; on failure the URL is nil and the
// code identifies why. ErrContentFilter is passed through untouched so
// callers can treat it as terminal.
func (s *Server) renderAndUpload(ctx context.Context, episodeID string, req gen.ImageRequest) (*string, string, error) {
	result, err := s.images.GeneratePanelImage(ctx, req)
	if err != nil {
		if errors.Is(err, gen.ErrContentFilter) {
			return nil, CodeContentFilter, err
		}
		code := CodeAPIError
		if errors.Is(err, gen.ErrTimeout) {
			code = CodeTimeout
		}
		s.log.Warn().Err(err).Str("episode_id", episodeID).Str("code", code).Msg("image generation failed")
		return nil, code, err
	}

	ext := "jpg"
	if result.MimeType == "image/png" {
		ext = "png"
	}
	objectPath := fmt.Sprintf("panels/%s/%s.%s", episodeID, uuid.NewString(), ext)
	url, err := s.assets.Upload(ctx, objectPath, result.Data, result.MimeType)
	if err != nil {
		s.log.Warn().Err(err).Str("episode_id", episodeID).Msg("panel upload failed")
		return nil, CodeAPIError, err
	}
	return &url, "", nil
}

// fetchReference downloads the most recent rendered panel image to pass
// as a continuity reference. Any failure just means no reference.
func (s *Server) fetchReference(ctx context.Context, panels []db.Panel) []byte {
	var url string
	for i := len(panels) - 1; i >= 0; i-- {
		if panels[i].ImageURL != nil {
			url = *panels[i].ImageURL
			break
		}
	}
	if url == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := s.refs.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Msg("reference image fetch failed")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil
	}
	return data
}
