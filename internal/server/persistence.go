package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection in the Store interface.
func NewStore(conn *gorm.DB) Store {
	return &gormStore{db: conn}
}

func (s *gormStore) CreateEpisode(ctx context.Context, episode *db.Episode, owner *db.Participant) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(episode).Error; err != nil {
			return fmt.Errorf("failed to create episode: %w", err)
		}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("failed to create owner participant: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetEpisode(ctx context.Context, id string) (*db.Episode, error) {
	var episode db.Episode
	err := s.db.WithContext(ctx).First(&episode, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load episode: %w", err)
	}
	return &episode, nil
}

func (s *gormStore) ListEpisodes(ctx context.Context, opts ListOptions) ([]EpisodeSummary, error) {
	query := s.db.WithContext(ctx).Model(&db.Episode{}).Order("created_at DESC")
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	var episodes []db.Episode
	if err := query.Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	if len(episodes) == 0 {
		return []EpisodeSummary{}, nil
	}

	ids := make([]string, 0, len(episodes))
	for _, episode := range episodes {
		ids = append(ids, episode.ID)
	}
	panelCounts, err := s.countByEpisode(ctx, &db.Panel{}, ids)
	if err != nil {
		return nil, err
	}
	likeCounts, err := s.countByEpisode(ctx, &db.EpisodeLike{}, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]EpisodeSummary, 0, len(episodes))
	for _, episode := range episodes {
		summaries = append(summaries, EpisodeSummary{
			Episode:    episode,
			PanelCount: panelCounts[episode.ID],
			LikeCount:  likeCounts[episode.ID],
		})
	}
	return summaries, nil
}

func (s *gormStore) countByEpisode(ctx context.Context, model any, episodeIDs []string) (map[string]int64, error) {
	var rows []struct {
		EpisodeID string
		Total     int64
	}
	err := s.db.WithContext(ctx).Model(model).
		Select("episode_id, COUNT(*) AS total").
		Where("episode_id IN ?", episodeIDs).
		Group("episode_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate counts: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EpisodeID] = row.Total
	}
	return counts, nil
}

func (s *gormStore) UpdateEpisodeTurn(ctx context.Context, id string, turnIndex int) error {
	err := s.db.WithContext(ctx).Model(&db.Episode{}).
		Where("id = ?", id).
		Update("current_turn_index", turnIndex).Error
	if err != nil {
		return fmt.Errorf("failed to update turn index: %w", err)
	}
	return nil
}

func (s *gormStore) CompleteEpisode(ctx context.Context, id string, title, summary *string) error {
	updates := map[string]any{"status": db.StatusCompleted}
	if title != nil {
		updates["title"] = *title
	}
	if summary != nil {
		updates["summary"] = *summary
	}
	// The status guard keeps completion one-way under concurrent requests.
	result := s.db.WithContext(ctx).Model(&db.Episode{}).
		Where("id = ? AND status = ?", id, db.StatusInProgress).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to complete episode: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) CountEpisodesByCreatorSince(ctx context.Context, creatorID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&db.Episode{}).
		Where("creator_id = ? AND created_at >= ?", creatorID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count episodes: %w", err)
	}
	return count, nil
}

func (s *gormStore) AddParticipant(ctx context.Context, participant *db.Participant) error {
	if err := s.db.WithContext(ctx).Create(participant).Error; err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (s *gormStore) ListParticipants(ctx context.Context, episodeID string) ([]db.Participant, error) {
	var participants []db.Participant
	err := s.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("turn_order ASC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

func (s *gormStore) InsertPanel(ctx context.Context, panel *db.Panel) error {
	if err := s.db.WithContext(ctx).Create(panel).Error; err != nil {
		return fmt.Errorf("failed to insert panel: %w", err)
	}
	return nil
}

func (s *gormStore) GetPanel(ctx context.Context, episodeID, panelID string) (*db.Panel, error) {
	var panel db.Panel
	err := s.db.WithContext(ctx).
		First(&panel, "id = ? AND episode_id = ?", panelID, episodeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load panel: %w", err)
	}
	return &panel, nil
}

func (s *gormStore) ListPanels(ctx context.Context, episodeID string) ([]db.Panel, error) {
	var panels []db.Panel
	err := s.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("order_index ASC").
		Find(&panels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list panels: %w", err)
	}
	return panels, nil
}

func (s *gormStore) UpdatePanelImage(ctx context.Context, panelID, imageURL string) error {
	err := s.db.WithContext(ctx).Model(&db.Panel{}).
		Where("id = ?", panelID).
		Update("image_url", imageURL).Error
	if err != nil {
		return fmt.Errorf("failed to update panel image: %w", err)
	}
	return nil
}

func (s *gormStore) TogglePanelLike(ctx context.Context, panelID, anonymousID string) (bool, int64, error) {
	var liked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("panel_id = ? AND anonymous_id = ?", panelID, anonymousID).
			Delete(&db.PanelLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Create(&db.PanelLike{
			PanelID:     panelID,
			AnonymousID: anonymousID,
			CreatedAt:   time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to toggle panel like: %w", err)
	}
	var count int64
	err = s.db.WithContext(ctx).Model(&db.PanelLike{}).
		Where("panel_id = ?", panelID).
		Count(&count).Error
	if err != nil {
		return false, 0, fmt.Errorf("failed to count panel likes: %w", err)
	}
	return liked, count, nil
}

func (s *gormStore) ToggleEpisodeLike(ctx context.Context, episodeID, anonymousID string) (bool, int64, error) {
	var liked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("episode_id = ? AND anonymous_id = ?", episodeID, anonymousID).
			Delete(&db.EpisodeLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Create(&db.EpisodeLike{
			EpisodeID:   episodeID,
			AnonymousID: anonymousID,
			CreatedAt:   time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to toggle episode like: %w", err)
	}
	count, err := s.CountEpisodeLikes(ctx, episodeID)
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func (s *gormStore) PanelLikeCounts(ctx context.Context, episodeID string) (map[string]int64, error) {
	var rows []struct {
		PanelID string
		Total   int64
	}
	err := s.db.WithContext(ctx).Model(&db.PanelLike{}).
		Select("panel_likes.panel_id, COUNT(*) AS total").
		Joins("JOIN panels ON panels.id = panel_likes.panel_id").
		Where("panels.episode_id = ?", episodeID).
		Group("panel_likes.panel_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate panel likes: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.PanelID] = row.Total
	}
	return counts, nil
}

func (s *gormStore) CountEpisodeLikes(ctx context.Context, episodeID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&db.EpisodeLike{}).
		Where("episode_id = ?", episodeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count episode likes: %w", err)
	}
	return count, nil
}

func (s *gormStore) AddReview(ctx context.Context, review *db.EpisodeReview) error {
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to add review: %w", err)
	}
	return nil
}

func (s *gormStore) ListReviews(ctx context.Context, episodeID string) ([]db.EpisodeReview, error) {
	var reviews []db.EpisodeReview
	err := s.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *gormStore) AppendEvent(ctx context.Context, event *db.Event) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}
