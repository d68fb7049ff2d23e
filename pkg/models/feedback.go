// Package models contains domain models for evolvd.
package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackType represents the kind of reaction a user had to a suggestion.
type FeedbackType string

const (
	// FeedbackPositive means the user accepted the suggestion as-is.
	FeedbackPositive FeedbackType = "positive"
	// FeedbackNegative means the user dismissed the suggestion.
	FeedbackNegative FeedbackType = "negative"
	// FeedbackEdit means the user kept the suggestion but rewrote part of it.
	FeedbackEdit FeedbackType = "edit"
)

// ValidFeedbackType reports whether t is a known feedback type.
func ValidFeedbackType(t string) bool {
	switch FeedbackType(t) {
	case FeedbackPositive, FeedbackNegative, FeedbackEdit:
		return true
	}
	return false
}

// FeedbackEvent is a single raw reaction to an AI-generated suggestion.
// Events are produced by the serving UI and consumed by the aggregator.
type FeedbackEvent struct {
	ID         string       `json:"id"`
	PromptID   string       `json:"promptId"`
	UserID     string       `json:"userId"`
	Type       FeedbackType `json:"type"`
	Suggestion string       `json:"suggestion,omitempty"`
	EditedText string       `json:"editedText,omitempty"`
	Comment    string       `json:"comment,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// NewFeedbackEvent creates a feedback event with a fresh ID and timestamp.
func NewFeedbackEvent(promptID, userID string, t FeedbackType) *FeedbackEvent {
	return &FeedbackEvent{
		ID:        uuid.NewString(),
		PromptID:  promptID,
		UserID:    userID,
		Type:      t,
		CreatedAt: time.Now().UTC(),
	}
}

// AggregationPeriod is the fixed time bucket over which feedback is summarized.
type AggregationPeriod string

const (
	PeriodHour  AggregationPeriod = "hour"
	PeriodDay   AggregationPeriod = "day"
	PeriodWeek  AggregationPeriod = "week"
	PeriodMonth AggregationPeriod = "month"
)

// Periods lists all aggregation periods, shortest first.
var Periods = []AggregationPeriod{PeriodHour, PeriodDay, PeriodWeek, PeriodMonth}

// IsValid reports whether p is a known aggregation period.
func (p AggregationPeriod) IsValid() bool {
	switch p {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth:
		return true
	}
	return false
}

// Duration returns the span of one aggregation window.
// A month is a fixed 30 days so window ends stay deterministic.
func (p AggregationPeriod) Duration() time.Duration {
	switch p {
	case PeriodHour:
		return time.Hour
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	}
	return time.Hour
}

// WindowEnd derives the exclusive end of the window starting at start.
func (p AggregationPeriod) WindowEnd(start time.Time) time.Time {
	return start.Add(p.Duration())
}

// WindowStart returns the canonical window start containing now:
// top of the hour, midnight UTC, midnight of the most recent Monday,
// or the first of the month.
func (p AggregationPeriod) WindowStart(now time.Time) time.Time {
	now = now.UTC()
	switch p {
	case PeriodHour:
		return now.Truncate(time.Hour)
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeek:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(midnight.Weekday()) + 6) % 7 // days since Monday
		return midnight.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return now.Truncate(time.Hour)
}

// RetentionTTL returns how long an aggregation for this period is kept.
func (p AggregationPeriod) RetentionTTL() time.Duration {
	switch p {
	case PeriodHour:
		return 7 * 24 * time.Hour
	case PeriodDay:
		return 30 * 24 * time.Hour
	case PeriodWeek:
		return 90 * 24 * time.Hour
	case PeriodMonth:
		return 365 * 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

const (
	// MaxPatternExamples caps the example strings kept per edit pattern.
	MaxPatternExamples = 3
	// MaxAggregationPatterns caps the patterns stored per aggregation.
	MaxAggregationPatterns = 10
)

// EditPattern is a heuristically labeled category of how users modify
// AI output, e.g. "shortened response".
type EditPattern struct {
	Label     string   `json:"pattern"`
	Frequency int      `json:"frequency"`
	Examples  []string `json:"examples,omitempty"`
}

// AddExample records an example edit, keeping only the most recent
// MaxPatternExamples entries.
func (e *EditPattern) AddExample(text string) {
	e.Examples = append(e.Examples, text)
	if len(e.Examples) > MaxPatternExamples {
		e.Examples = e.Examples[len(e.Examples)-MaxPatternExamples:]
	}
}

// AggregationMetrics are the summary counts for one aggregation window.
type AggregationMetrics struct {
	Positive          int           `json:"positive"`
	Negative          int           `json:"negative"`
	Edits             int           `json:"edits"`
	TotalInteractions int           `json:"totalInteractions"`
	Patterns          []EditPattern `json:"patterns,omitempty"`
}

// FeedbackAggregation is an immutable, time-bucketed feedback summary.
// It is keyed by (promptId, period, startTime).
type FeedbackAggregation struct {
	PromptID  string             `json:"promptId"`
	Period    AggregationPeriod  `json:"period"`
	StartTime time.Time          `json:"startTime"`
	EndTime   time.Time          `json:"endTime"`
	Metrics   AggregationMetrics `json:"metrics"`
}

// NewFeedbackAggregation creates an empty aggregation for the window
// starting at start, with the end derived from the period.
func NewFeedbackAggregation(promptID string, period AggregationPeriod, start time.Time) *FeedbackAggregation {
	start = start.UTC()
	return &FeedbackAggregation{
		PromptID:  promptID,
		Period:    period,
		StartTime: start,
		EndTime:   period.WindowEnd(start),
	}
}
