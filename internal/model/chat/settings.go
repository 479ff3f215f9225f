package chat

import (
	"fmt"
	"strings"
)

// Personality selects the tone family used for replies.
type Personality string

const (
	Professional Personality = "professional"
	Friendly     Personality = "friendly"
	Casual       Personality = "casual"
)

// ParsePersonality normalizes a user supplied personality name.
func ParsePersonality(raw string) (Personality, error) {
	switch p := Personality(strings.ToLower(strings.TrimSpace(raw))); p {
	case Professional, Friendly, Casual:
		return p, nil
	case "":
		return Professional, nil
	default:
		return "", fmt.Errorf("unknown personality %q", raw)
	}
}

const (
	SpeedSlow   = 1
	SpeedNormal = 2
	SpeedFast   = 3
)

// Settings holds the per-session knobs exposed in the settings dialog.
type Settings struct {
	Personality   Personality `json:"personality"`
	ResponseSpeed int         `json:"responseSpeed"`
	VoiceEnabled  bool        `json:"voiceEnabled"`
	EmojiMode     bool        `json:"emojiMode"`
	// Language is accepted and echoed back only.
	Language string `json:"language"`
}

// DefaultSettings mirrors the initial state of a fresh chat window.
func DefaultSettings() Settings {
	return Settings{
		Personality:   Professional,
		ResponseSpeed: SpeedNormal,
		VoiceEnabled:  false,
		EmojiMode:     true,
		Language:      "english",
	}
}

// Validate checks the enum and range constraints.
func (s Settings) Validate() error {
	if _, err := ParsePersonality(string(s.Personality)); err != nil || s.Personality == "" {
		return fmt.Errorf("invalid personality %q", s.Personality)
	}
	if s.ResponseSpeed < SpeedSlow || s.ResponseSpeed > SpeedFast {
		return fmt.Errorf("response speed must be between %d and %d, got %d", SpeedSlow, SpeedFast, s.ResponseSpeed)
	}
	return nil
}
