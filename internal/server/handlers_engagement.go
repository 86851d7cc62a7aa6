package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

type likeRequest struct {
	AnonymousID string `json:"anonymous_id" validate:"required,max=100"`
}

type likeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

func (s *Server) handleToggleEpisodeLike(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	var req likeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.AnonymousID = strings.TrimSpace(req.AnonymousID)
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if _, err := s.store.GetEpisode(r.Context(), episodeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeValidation, "episode not found")
			return
		}
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load episode")
		return
	}

	liked, count, err := s.store.ToggleEpisodeLike(r.Context(), episodeID, req.AnonymousID)
	if err != nil {
		s.log.Error().Err(err).Str("episode_id", episodeID).Msg("episode like toggle failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to toggle like")
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{Liked: liked, LikeCount: count})
}

func (s *Server) handleTogglePanelLike(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	panelID := r.PathValue("panelID")
	var req likeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.AnonymousID = strings.TrimSpace(req.AnonymousID)
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if _, err := s.store.GetPanel(r.Context(), episodeID, panelID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeValidation, "panel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load panel")
		return
	}

	liked, count, err := s.store.TogglePanelLike(r.Context(), panelID, req.AnonymousID)
	if err != nil {
		s.log.Error().Err(err).Str("panel_id", panelID).Msg("panel like toggle failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to toggle like")
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{Liked: liked, LikeCount: count})
}

type createReviewRequest struct {
	AnonymousID string `json:"anonymous_id" validate:"required,max=100"`
	Content     string `json:"content" validate:"required,max=200"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	var req createReviewRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.AnonymousID = strings.TrimSpace(req.AnonymousID)
	req.Content = strings.TrimSpace(req.Content)
	if apiErr := validateStruct(req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if _, err := s.store.GetEpisode(r.Context(), episodeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeValidation, "episode not found")
			return
		}
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load episode")
		return
	}

	review := &db.EpisodeReview{
		EpisodeID:   episodeID,
		AnonymousID: req.AnonymousID,
		Content:     req.Content,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.AddReview(r.Context(), review); err != nil {
		s.log.Error().Err(err).Str("episode_id", episodeID).Msg("review creation failed")
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to save review")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"review": review})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	if _, err := s.store.GetEpisode(r.Context(), episodeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeValidation, "episode not found")
			return
		}
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load episode")
		return
	}
	reviews, err := s.store.ListReviews(r.Context(), episodeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to list reviews")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}
