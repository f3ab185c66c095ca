package history

import (
	"time"

	"bgscan/internal/domain/analysis"
	"bgscan/internal/domain/position"
)

const DefaultLimit = 100

type Item struct {
	Position position.BoardPosition    `json:"position" bson:"position"`
	Analysis *analysis.PositionAnalysis `json:"analysis,omitempty" bson:"analysis,omitempty"`
	ImageURI string                     `json:"imageUri,omitempty" bson:"image_uri,omitempty"`
	SavedAt  time.Time                  `json:"savedAt" bson:"saved_at"`
}

func (i Item) ID() string {
	return i.Position.ID
}

type Settings struct {
	DarkMode       bool `json:"darkMode"`
	FlashEnabled   bool `json:"flashEnabled"`
	AutoCapture    bool `json:"autoCapture"`
	SoundEnabled   bool `json:"soundEnabled"`
	HapticFeedback bool `json:"hapticFeedback"`
}

func DefaultSettings() Settings {
	return Settings{
		DarkMode:       true,
		FlashEnabled:   false,
		AutoCapture:    false,
		SoundEnabled:   true,
		HapticFeedback: true,
	}
}

// SettingsPatch carries a partial update, nil fields are left unchanged.
type SettingsPatch struct {
	DarkMode       *bool `json:"darkMode,omitempty"`
	FlashEnabled   *bool `json:"flashEnabled,omitempty"`
	AutoCapture    *bool `json:"autoCapture,omitempty"`
	SoundEnabled   *bool `json:"soundEnabled,omitempty"`
	HapticFeedback *bool `json:"hapticFeedback,omitempty"`
}

func (s Settings) Apply(p SettingsPatch) Settings {
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.FlashEnabled != nil {
		s.FlashEnabled = *p.FlashEnabled
	}
	if p.AutoCapture != nil {
		s.AutoCapture = *p.AutoCapture
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.HapticFeedback != nil {
		s.HapticFeedback = *p.HapticFeedback
	}
	return s
}
