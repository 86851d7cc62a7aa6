package db

import "time"

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Episode struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Style            string    `gorm:"size:16;not null" json:"style"`
	CharacterPrompt  string    `gorm:"size:300;not null" json:"character_prompt"`
	Title            *string   `gorm:"size:50" json:"title"`
	Summary          *string   `gorm:"size:100" json:"summary"`
	Status           string    `gorm:"size:16;not null;default:in_progress" json:"status"`
	CurrentTurnIndex int       `gorm:"not null;default:0" json:"current_turn_index"`
	CreatorID        string    `gorm:"size:100;index;not null" json:"creator_id"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"-"`

	Participants []Participant `json:"-"`
	Panels       []Panel       `json:"-"`
}
