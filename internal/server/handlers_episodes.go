package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

type createEpisodeRequest struct {
	Style           string  `json:"style" validate:"required,episode_style"`
	CharacterPrompt string  `json:"character_prompt" validate:"required,max=300"`
	Title           *string `json:"title" validate:"omitempty,max=50"`
	Nickname        string  `json:"nickname" validate:"required,max=10"`
	AnonymousID     string  `json:"anonymous_id" validate:"required,max=100"`
}

type createEpisodeResponse struct {
	Episode     db.Episode     `json:"episode"`
	Participant db.Participant `json:"participant"`
}

// localMidnight returns the start of the calendar day containing t, in
// the server's local zone. The daily cap resets here, not on a rolling
// 24h window.
func localMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func (s *Server) handleCreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req createEpisodeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.Style = strings.TrimSpace(req.Style)
	req.CharacterPrompt = strings.TrimSpace(req.CharacterPrompt)
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.AnonymousID = strings.TrimSpace(req.AnonymousID)
	req.Title = trimOptional(req.Title)
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	since := localMidnight(s.now())
	count, err := s.store.CountEpisodesByCreatorSince(r.Context(), req.AnonymousID, since)
	if err != nil {
		s.log.Error().Err(err).Msg("daily limit check failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to check daily limit")
		return
	}
	if count >= int64(s.cfg.DailyEpisodeLimit) {
		writeError(w, http.StatusTooManyRequests, CodeDailyLimit, "daily episode limit reached")
		return
	}

	now := s.now().UTC()
	episode := &db.Episode{
		ID:               uuid.NewString(),
		Style:            req.Style,
		CharacterPrompt:  req.CharacterPrompt,
		Title:            req.Title,
		Status:           db.StatusInProgress,
		CurrentTurnIndex: 0,
		CreatorID:        req.AnonymousID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	owner := &db.Participant{
		ID:        uuid.NewString(),
		EpisodeID: episode.ID,
		Nickname:  req.Nickname,
		TurnOrder: 0,
		JoinedAt:  now,
	}
	if err := s.store.CreateEpisode(r.Context(), episode, owner); err != nil {
		s.log.Error().Err(err).Msg("episode creation failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to create episode")
		return
	}

	s.log.Info().Str("episode_id", episode.ID).Str("style", episode.Style).Msg("episode created")
	writeJSON(w, http.StatusCreated, createEpisodeResponse{
		Episode:     *episode,
		Participant: *owner,
	})
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	opts := ListOptions{Limit: 20}
	if raw := r.URL.Query().Get("status"); raw != "" {
		if raw != db.StatusInProgress && raw != db.StatusCompleted {
			writeError(w, http.StatusBadRequest, CodeValidation, "invalid status filter")
			return
		}
		opts.Status = raw
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 && value <= 50 {
			opts.Limit = value
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			opts.Offset = value
		}
	}

	summaries, err := s.store.ListEpisodes(r.Context(), opts)
	if err != nil {
		s.log.Error().Err(err).Msg("episode listing failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to list episodes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": summaries})
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.snapshotEpisode(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeValidation, "episode not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("episode snapshot failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load episode")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type joinEpisodeRequest struct {
	Nickname    string `json:"nickname" validate:"required,max=10"`
	AnonymousID string `json:"anonymous_id" validate:"required,max=100"`
}

func (s *Server) handleJoinEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	var req joinEpisodeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.AnonymousID = strings.TrimSpace(req.AnonymousID)
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	episode, err := s.store.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeValidation, "episode not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load episode")
		return
	}
	if episode.Status != db.StatusInProgress {
		writeError(w, http.StatusConflict, CodeValidation, "episode is already completed")
		return
	}

	participants, err := s.store.ListParticipants(r.Context(), episodeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load participants")
		return
	}
	participant := &db.Participant{
		ID:        uuid.NewString(),
		EpisodeID: episodeID,
		Nickname:  req.Nickname,
		TurnOrder: len(participants),
		JoinedAt:  s.now().UTC(),
	}
	if err := s.store.AddParticipant(r.Context(), participant); err != nil {
		s.log.Error().Err(err).Str("episode_id", episodeID).Msg("join failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to join episode")
		return
	}

	s.log.Info().Str("episode_id", episodeID).Str("participant_id", participant.ID).Msg("participant joined")
	s.publish(r.Context(), episodeID, &participant.ID, wsEvent{
		Type:        eventParticipantInsert,
		Participant: participant,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"participant": participant})
}

type completeEpisodeRequest struct {
	ParticipantID string  `json:"participant_id" validate:"required"`
	Title         *string `json:"title" validate:"omitempty,max=50"`
	Summary       *string `json:"summary" validate:"omitempty,max=100"`
}

func (s *Server) handleCompleteEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	var req completeEpisodeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.Title = trimOptional(req.Title)
	req.Summary = trimOptional(req.Summary)
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	episode, err := s.store.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeValidation, "episode not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load episode")
		return
	}
	if episode.Status != db.StatusInProgress {
		writeError(w, http.StatusConflict, CodeValidation, "episode is already completed")
		return
	}

	participants, err := s.store.ListParticipants(r.Context(), episodeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load participants")
		return
	}
	participant := findParticipant(participants, req.ParticipantID)
	if participant == nil {
		writeError(w, http.StatusForbidden, CodeValidation, "unknown participant")
		return
	}
	// Only the first participant (the creator) may close the episode.
	if participant.TurnOrder != 0 {
		writeError(w, http.StatusForbidden, CodeValidation, "only the episode creator can complete it")
		return
	}

	if err := s.store.CompleteEpisode(r.Context(), episodeID, req.Title, req.Summary); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusConflict, CodeValidation, "episode is already completed")
			return
		}
		s.log.Error().Err(err).Str("episode_id", episodeID).Msg("completion failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to complete episode")
		return
	}

	episode.Status = db.StatusCompleted
	if req.Title != nil {
		episode.Title = req.Title
	}
	if req.Summary != nil {
		episode.Summary = req.Summary
	}
	s.log.Info().Str("episode_id", episodeID).Msg("episode completed")
	s.publish(r.Context(), episodeID, &participant.ID, wsEvent{
		Type:    eventEpisodeUpdate,
		Episode: episode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"episode": episode})
}
