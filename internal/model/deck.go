package model

import "time"

type Deck struct {
	ID        string    `gorm:"primaryKey;size:64" json:"deck_id"`
	ProjectID string    `gorm:"size:64;not null;index" json:"project_id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Name      string    `gorm:"size:256;not null" json:"name"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

type Card struct {
	ID       string `gorm:"primaryKey;size:64" json:"card_id"`
	DeckID   string `gorm:"size:64;not null;index" json:"deck_id"`
	Front    string `gorm:"type:text;not null" json:"front"`
	Back     string `gorm:"type:text;not null" json:"back"`
	Position int    `gorm:"not null" json:"position"`
}
