package models

import (
	"time"
)

// MaxHistoryEntries caps the number of prior snapshots kept per prompt.
// Oldest entries are evicted first.
const MaxHistoryEntries = 10

// PromptPerformance is the last-computed performance block for a prompt.
type PromptPerformance struct {
	SuccessRate       float64   `json:"successRate"`
	EditRate          float64   `json:"editRate"`
	TotalInteractions int       `json:"totalInteractions"`
	LastCalculated    time.Time `json:"lastCalculated"`
}

// NeutralPerformance is the performance assigned to a prompt before any
// feedback has been observed.
func NeutralPerformance(now time.Time) PromptPerformance {
	return PromptPerformance{
		SuccessRate:    0.5,
		LastCalculated: now.UTC(),
	}
}

// EvolutionState tracks a prompt's adaptation lifecycle.
//
// CooldownUntil is a policy window during which the prompt is excluded
// from automatic evolution. It is not a mutual-exclusion lock; the wire
// name "lockedUntil" is kept for compatibility with existing stored data.
type EvolutionState struct {
	LastUpdated    time.Time  `json:"lastUpdated"`
	CooldownUntil  *time.Time `json:"lockedUntil,omitempty"`
	Boundaries     []string   `json:"boundaries"`
	EvolutionCount int        `json:"evolutionCount"`
}

// PromptSnapshot is one entry in a prompt's bounded history.
type PromptSnapshot struct {
	Version     int               `json:"version"`
	Prompt      string            `json:"prompt"`
	Performance PromptPerformance `json:"performance"`
	Timestamp   time.Time         `json:"timestamp"`
	Reason      string            `json:"reason"`
}

// EvolvingPrompt is the unit of adaptation: a versioned instruction text
// with bounded history and immutable safety boundaries.
//
// Boundaries are never mutated by the engine; every committed
// CurrentPrompt must contain all boundary strings.
type EvolvingPrompt struct {
	ID            string            `json:"id"`
	BasePrompt    string            `json:"basePrompt"`
	CurrentPrompt string            `json:"currentPrompt"`
	Version       int               `json:"version"`
	Performance   PromptPerformance `json:"performance"`
	Evolution     EvolutionState    `json:"evolution"`
	History       []PromptSnapshot  `json:"history"`
}

// NewEvolvingPrompt initializes a prompt at version 1 with neutral
// performance and empty history.
func NewEvolvingPrompt(id, basePrompt string, boundaries []string) *EvolvingPrompt {
	now := time.Now().UTC()
	return &EvolvingPrompt{
		ID:            id,
		BasePrompt:    basePrompt,
		CurrentPrompt: basePrompt,
		Version:       1,
		Performance:   NeutralPerformance(now),
		Evolution: EvolutionState{
			LastUpdated: now,
			Boundaries:  boundaries,
		},
	}
}

// InCooldown reports whether the prompt is inside its evolution cooldown
// window at the given time.
func (p *EvolvingPrompt) InCooldown(now time.Time) bool {
	return p.Evolution.CooldownUntil != nil && now.Before(*p.Evolution.CooldownUntil)
}

// PromptID derives a stable prompt key from a user-segment label and an
// optional user identifier.
func PromptID(segment, userID string) string {
	if userID == "" {
		return segment
	}
	return segment + ":" + userID
}
