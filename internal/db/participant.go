package db

import "time"

type Participant struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	EpisodeID string    `gorm:"size:36;index;not null;uniqueIndex:idx_participants_episode_order" json:"episode_id"`
	Nickname  string    `gorm:"size:10;not null" json:"nickname"`
	TurnOrder int       `gorm:"not null;uniqueIndex:idx_participants_episode_order" json:"turn_order"`
	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`
}
