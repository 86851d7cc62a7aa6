package db

import "time"

const (
	BubbleLeft   = "left"
	BubbleRight  = "right"
	BubbleCenter = "center"
)

type Panel struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	EpisodeID        string    `gorm:"size:36;index;not null;uniqueIndex:idx_panels_episode_order" json:"episode_id"`
	OrderIndex       int       `gorm:"not null;uniqueIndex:idx_panels_episode_order" json:"order_index"`
	SceneDescription string    `gorm:"size:500;not null" json:"scene_description"`
	Dialogue         *string   `gorm:"size:200" json:"dialogue"`
	SoundEffect      *string   `gorm:"size:100" json:"sound_effect"`
	BubblePosition   string    `gorm:"size:8;not null;default:center" json:"bubble_position"`
	ImageURL         *string   `gorm:"size:500" json:"image_url"`
	CreatedBy        *string   `gorm:"size:36;index" json:"created_by"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}
