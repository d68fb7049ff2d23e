package models

import "time"

// ResponseStyle is a user's preferred register for assistant output.
type ResponseStyle string

const (
	StyleTechnical      ResponseStyle = "technical"
	StyleConversational ResponseStyle = "conversational"
	StyleBalanced       ResponseStyle = "balanced"
)

// DetailLevel is a user's preferred amount of detail.
type DetailLevel string

const (
	DetailConcise       DetailLevel = "concise"
	DetailDetailed      DetailLevel = "detailed"
	DetailComprehensive DetailLevel = "comprehensive"
)

// Preferences are the tunable output preferences for one user.
type Preferences struct {
	ResponseStyle  ResponseStyle `json:"responseStyle"`
	DetailLevel    DetailLevel   `json:"detailLevel"`
	Terminology    []string      `json:"terminology,omitempty"`
	AvoidedPhrases []string      `json:"avoidedPhrases,omitempty"`
}

// LearningHistory summarizes how much signal has shaped a profile.
type LearningHistory struct {
	TotalFeedback int       `json:"totalFeedback"`
	PositiveRatio float64   `json:"positiveRatio"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// UserPreferenceProfile is the derived, mutable preference record for one
// user. Profiles are created lazily on first reference.
type UserPreferenceProfile struct {
	UserID          string          `json:"userId"`
	Preferences     Preferences     `json:"preferences"`
	LearningHistory LearningHistory `json:"learningHistory"`
}

// NewUserPreferenceProfile creates a profile with default preferences:
// balanced style, concise detail, neutral positive ratio.
func NewUserPreferenceProfile(userID string) *UserPreferenceProfile {
	return &UserPreferenceProfile{
		UserID: userID,
		Preferences: Preferences{
			ResponseStyle: StyleBalanced,
			DetailLevel:   DetailConcise,
		},
		LearningHistory: LearningHistory{
			PositiveRatio: 0.5,
			LastUpdated:   time.Now().UTC(),
		},
	}
}
