package server

import (
	"context"
	"errors"
	"time"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

// ErrNotFound is returned by Store lookups for missing rows.
var ErrNotFound = errors.New("not found")

// EpisodeSummary is one row of the episode listing.
type EpisodeSummary struct {
	Episode    db.Episode `json:"episode"`
	PanelCount int64      `json:"panel_count"`
	LikeCount  int64      `json:"like_count"`
}

// ListOptions bounds the episode listing. Status filters by episode
// status when non-empty.
type ListOptions struct {
	Status string
	Limit  int
	Offset int
}

// Store is the persistence surface the handlers run against. The gorm
// implementation backs production; tests swap in an in-memory one.
type Store interface {
	CreateEpisode(ctx context.Context, episode *db.Episode, owner *db.Participant) error
	GetEpisode(ctx context.Context, id string) (*db.Episode, error)
	ListEpisodes(ctx context.Context, opts ListOptions) ([]EpisodeSummary, error)
	UpdateEpisodeTurn(ctx context.Context, id string, turnIndex int) error
	CompleteEpisode(ctx context.Context, id string, title, summary *string) error
	CountEpisodesByCreatorSince(ctx context.Context, creatorID string, since time.Time) (int64, error)

	AddParticipant(ctx context.Context, participant *db.Participant) error
	ListParticipants(ctx context.Context, episodeID string) ([]db.Participant, error)

	InsertPanel(ctx context.Context, panel *db.Panel) error
	GetPanel(ctx context.Context, episodeID, panelID string) (*db.Panel, error)
	ListPanels(ctx context.Context, episodeID string) ([]db.Panel, error)
	UpdatePanelImage(ctx context.Context, panelID, imageURL string) error

	TogglePanelLike(ctx context.Context, panelID, anonymousID string) (liked bool, count int64, err error)
	ToggleEpisodeLike(ctx context.Context, episodeID, anonymousID string) (liked bool, count int64, err error)
	PanelLikeCounts(ctx context.Context, episodeID string) (map[string]int64, error)
	CountEpisodeLikes(ctx context.Context, episodeID string) (int64, error)
	AddReview(ctx context.Context, review *db.EpisodeReview) error
	ListReviews(ctx context.Context, episodeID string) ([]db.EpisodeReview, error)

	AppendEvent(ctx context.Context, event *db.Event) error
}
