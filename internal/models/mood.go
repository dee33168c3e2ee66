package models

import (
	"strings"

	"gorm.io/gorm"
)

// Mood is a named system prompt selecting the reply tone.
type Mood struct {
	Base
	Lifecycle
	Owned
	MoodName   string `gorm:"type:varchar(255);not null;index" json:"mood_name"`
	MoodPrompt string `gorm:"type:text" json:"mood_prompt"`
}

// BeforeSave keeps names lower-case so lookups are case-insensitive.
func (m *Mood) BeforeSave(*gorm.DB) error {
	m.MoodName = NormalizeMoodName(m.MoodName)
	return nil
}

// NormalizeMoodName is the canonical form used for storage and lookup.
func NormalizeMoodName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateMoodRequest creates a mood.
type CreateMoodRequest struct {
	MoodName   string `json:"mood_name" binding:"required,max=255"`
	MoodPrompt string `json:"mood_prompt" binding:"required"`
	Global     bool   `json:"global"`
}

// UpdateMoodRequest is a partial update.
type UpdateMoodRequest struct {
	MoodName   *string `json:"mood_name" binding:"omitempty,max=255"`
	MoodPrompt *string `json:"mood_prompt"`
	Status     *string `json:"status"`
}
