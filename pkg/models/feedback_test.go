package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// AGGREGATION PERIODS
// =============================================================================

func TestAggregationPeriod_WindowStart(t *testing.T) {
	// Wednesday 2025-03-19 14:37:22 UTC
	now := time.Date(2025, 3, 19, 14, 37, 22, 0, time.UTC)

	tests := []struct {
		period AggregationPeriod
		want   time.Time
	}{
		{PeriodHour, time.Date(2025, 3, 19, 14, 0, 0, 0, time.UTC)},
		{PeriodDay, time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC)},
		{PeriodWeek, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)}, // Monday
		{PeriodMonth, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.period.WindowStart(now), "period %s", tt.period)
	}
}

func TestAggregationPeriod_WindowStart_SundayBelongsToPreviousWeek(t *testing.T) {
	// Sunday 2025-03-23
	now := time.Date(2025, 3, 23, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), PeriodWeek.WindowStart(now))
}

func TestAggregationPeriod_RetentionTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, PeriodHour.RetentionTTL())
	assert.Equal(t, 30*24*time.Hour, PeriodDay.RetentionTTL())
	assert.Equal(t, 90*24*time.Hour, PeriodWeek.RetentionTTL())
	assert.Equal(t, 365*24*time.Hour, PeriodMonth.RetentionTTL())
}

func TestAggregationPeriod_IsValid(t *testing.T) {
	for _, p := range Periods {
		assert.True(t, p.IsValid())
	}
	assert.False(t, AggregationPeriod("fortnight").IsValid())
	assert.False(t, AggregationPeriod("").IsValid())
}

// =============================================================================
// FEEDBACK EVENTS
// =============================================================================

func TestValidFeedbackType(t *testing.T) {
	assert.True(t, ValidFeedbackType("positive"))
	assert.True(t, ValidFeedbackType("negative"))
	assert.True(t, ValidFeedbackType("edit"))
	assert.False(t, ValidFeedbackType("thumbs_up"))
	assert.False(t, ValidFeedbackType(""))
}

func TestNewFeedbackEvent(t *testing.T) {
	event := NewFeedbackEvent("general:user-1", "user-1", FeedbackPositive)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "general:user-1", event.PromptID)
	assert.Equal(t, FeedbackPositive, event.Type)
	assert.False(t, event.CreatedAt.IsZero())
}

// =============================================================================
// EDIT PATTERNS
// =============================================================================

func TestEditPattern_AddExample_KeepsMostRecent(t *testing.T) {
	p := EditPattern{Label: "shortened response"}
	p.AddExample("first")
	p.AddExample("second")
	p.AddExample("third")
	p.AddExample("fourth")
	p.AddExample("fifth")

	assert.Len(t, p.Examples, MaxPatternExamples)
	assert.Equal(t, []string{"third", "fourth", "fifth"}, p.Examples)
}

func TestNewFeedbackAggregation_DerivesWindowEnd(t *testing.T) {
	start := time.Date(2025, 3, 19, 14, 0, 0, 0, time.UTC)
	agg := NewFeedbackAggregation("general", PeriodHour, start)

	assert.Equal(t, start, agg.StartTime)
	assert.Equal(t, start.Add(time.Hour), agg.EndTime)
	assert.Zero(t, agg.Metrics.TotalInteractions)
}
