package models

import "time"

// ValidationResult carries the outcome of the three independent mutation
// gates. Passed is true only when all three checks pass (fail-closed).
type ValidationResult struct {
	BoundaryCheck   bool     `json:"boundaryCheck"`
	RegressionCheck bool     `json:"regressionCheck"`
	SafetyCheck     bool     `json:"safetyCheck"`
	Passed          bool     `json:"passed"`
	Details         []string `json:"details,omitempty"`
}

// PerformanceSummary is the aggregated window of performance that
// motivated a mutation.
type PerformanceSummary struct {
	SuccessRate       float64       `json:"successRate"`
	EditRate          float64       `json:"editRate"`
	TotalInteractions int           `json:"totalInteractions"`
	TopPatterns       []EditPattern `json:"topPatterns,omitempty"`
}

// MutationProposal is a candidate prompt revision that passed validation
// and awaits human review. Proposals are never self-applied; committing
// one is an explicit operation on the versioned store.
type MutationProposal struct {
	PromptID           string             `json:"promptId"`
	OriginalVersion    int                `json:"originalVersion"`
	NewVersion         int                `json:"newVersion"`
	OriginalPrompt     string             `json:"originalPrompt"`
	ProposedPrompt     string             `json:"proposedPrompt"`
	PerformanceSummary PerformanceSummary `json:"performanceSummary"`
	ValidationResults  ValidationResult   `json:"validationResults"`
	ProposedAt         time.Time          `json:"proposedAt"`
}
