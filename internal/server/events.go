package server

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

// Websocket event types. Clients reduce these into their local view of
// the episode.
const (
	eventSnapshot             = "snapshot"
	eventEpisodeUpdate        = "episode_update"
	eventParticipantInsert    = "participant_insert"
	eventPanelInsert          = "panel_insert"
	eventPanelUpdate          = "panel_update"
	eventContinuationProgress = "continuation_progress"
)

type wsEvent struct {
	Type        string          `json:"type"`
	Episode     *db.Episode     `json:"episode,omitempty"`
	Participant *db.Participant `json:"participant,omitempty"`
	Panel       *db.Panel       `json:"panel,omitempty"`
	Completed   int             `json:"completed,omitempty"`
	Total       int             `json:"total,omitempty"`
}

// publish fans an event out to the episode's websocket group and appends
// it to the durable event log. Log failures are reported, not fatal; the
// in-flight request already committed its own rows.
func (s *Server) publish(ctx context.Context, episodeID string, participantID *string, evt wsEvent) {
	s.ws.Broadcast(episodeID, evt)

	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error().Err(err).Str("episode_id", episodeID).Str("type", evt.Type).Msg("failed to encode event payload")
		return
	}
	err = s.store.AppendEvent(ctx, &db.Event{
		EpisodeID:     episodeID,
		ParticipantID: participantID,
		Type:          evt.Type,
		Payload:       datatypes.JSON(payload),
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("episode_id", episodeID).Str("type", evt.Type).Msg("failed to append event")
	}
}
