package server

import (
	"context"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

// episodeSnapshot is the full authoritative state of one episode, sent on
// websocket connect and returned by the detail endpoint.
type episodeSnapshot struct {
	Type         string           `json:"type"`
	Episode      db.Episode       `json:"episode"`
	Participants []db.Participant `json:"participants"`
	Panels       []db.Panel       `json:"panels"`
	LikeCount    int64            `json:"like_count"`
	PanelLikes   map[string]int64 `json:"panel_likes"`
}

func (s *Server) snapshotEpisode(ctx context.Context, id string) (*episodeSnapshot, error) {
	episode, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	panels, err := s.store.ListPanels(ctx, id)
	if err != nil {
		return nil, err
	}
	likeCount, err := s.store.CountEpisodeLikes(ctx, id)
	if err != nil {
		return nil, err
	}
	panelLikes, err := s.store.PanelLikeCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &episodeSnapshot{
		Type:         eventSnapshot,
		Episode:      *episode,
		Participants: participants,
		Panels:       panels,
		LikeCount:    likeCount,
		PanelLikes:   panelLikes,
	}, nil
}
