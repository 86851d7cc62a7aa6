package db

import "time"

type PanelLike struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PanelID     string    `gorm:"size:36;not null;uniqueIndex:idx_panel_likes_panel_anon" json:"panel_id"`
	AnonymousID string    `gorm:"size:100;not null;uniqueIndex:idx_panel_likes_panel_anon" json:"anonymous_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

type EpisodeLike struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EpisodeID   string    `gorm:"size:36;not null;uniqueIndex:idx_episode_likes_episode_anon" json:"episode_id"`
	AnonymousID string    `gorm:"size:100;not null;uniqueIndex:idx_episode_likes_episode_anon" json:"anonymous_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

type EpisodeReview struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EpisodeID   string    `gorm:"size:36;index;not null" json:"episode_id"`
	AnonymousID string    `gorm:"size:100;not null" json:"anonymous_id"`
	Content     string    `gorm:"size:200;not null" json:"content"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
