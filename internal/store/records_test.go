package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/pkg/models"
)

// =============================================================================
// AGGREGATIONS
// =============================================================================

func TestAggregationStore_ListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewAggregationStore(backend, zerolog.Nop())

	base := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		agg := models.NewFeedbackAggregation("general", models.PeriodDay, base.AddDate(0, 0, i))
		agg.Metrics.TotalInteractions = i
		require.NoError(t, store.StoreAggregation(ctx, agg))
	}

	aggs, err := store.ListAggregations(ctx, "general", models.PeriodDay, 3)
	require.NoError(t, err)
	require.Len(t, aggs, 3)
	assert.Equal(t, base.AddDate(0, 0, 4), aggs[0].StartTime)
	assert.Equal(t, base.AddDate(0, 0, 2), aggs[2].StartTime)
}

func TestAggregationStore_RewriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewAggregationStore(backend, zerolog.Nop())

	start := time.Date(2025, 3, 19, 14, 0, 0, 0, time.UTC)
	agg := models.NewFeedbackAggregation("general", models.PeriodHour, start)
	agg.Metrics.Positive = 2
	require.NoError(t, store.StoreAggregation(ctx, agg))

	// Re-aggregating the same window overwrites the earlier record.
	agg.Metrics.Positive = 5
	require.NoError(t, store.StoreAggregation(ctx, agg))

	aggs, err := store.ListAggregations(ctx, "general", models.PeriodHour, 0)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 5, aggs[0].Metrics.Positive)
}

// =============================================================================
// EVENTS
// =============================================================================

func TestEventStore_ListEvents_WindowFilter(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewEventStore(backend, zerolog.Nop())

	windowStart := time.Date(2025, 3, 19, 14, 0, 0, 0, time.UTC)
	times := []time.Time{
		windowStart.Add(-time.Minute), // before window
		windowStart,                   // inclusive start
		windowStart.Add(30 * time.Minute),
		windowStart.Add(time.Hour), // exclusive end
	}
	for i, ts := range times {
		event := models.NewFeedbackEvent("general", "user-1", models.FeedbackPositive)
		event.CreatedAt = ts
		event.Comment = string(rune('a' + i))
		require.NoError(t, store.RecordEvent(ctx, event))
	}

	events, err := store.ListEvents(ctx, "general", windowStart, windowStart.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Comment)
	assert.Equal(t, "c", events[1].Comment)
}

func TestEventStore_ListEvents_DoesNotCrossPrompts(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewEventStore(backend, zerolog.Nop())

	now := time.Date(2025, 3, 19, 14, 30, 0, 0, time.UTC)
	for _, promptID := range []string{"general", "general:user-1"} {
		event := models.NewFeedbackEvent(promptID, "user-1", models.FeedbackNegative)
		event.CreatedAt = now
		require.NoError(t, store.RecordEvent(ctx, event))
	}

	events, err := store.ListEvents(ctx, "general", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "general", events[0].PromptID)
}

func TestEventStore_ListEvents_NumericUserSegmentDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewEventStore(backend, zerolog.Nop())

	// A user id that is 13 digits looks exactly like the zero-padded
	// timestamp segment of an event key, so the key shape alone cannot
	// tell "general:1742393100000" events apart from "general" events.
	now := time.Date(2025, 3, 19, 14, 30, 0, 0, time.UTC)
	event := models.NewFeedbackEvent("general:1742393100000", "1742393100000", models.FeedbackEdit)
	event.CreatedAt = now
	require.NoError(t, store.RecordEvent(ctx, event))

	events, err := store.ListEvents(ctx, "general", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)

	scoped, err := store.ListEvents(ctx, "general:1742393100000", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "general:1742393100000", scoped[0].PromptID)
}

// =============================================================================
// PROPOSALS
// =============================================================================

func TestProposalStore_RoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewProposalStore(backend, zerolog.Nop())

	proposal := &models.MutationProposal{
		PromptID:        "general",
		OriginalVersion: 3,
		NewVersion:      4,
		OriginalPrompt:  "old",
		ProposedPrompt:  "new",
		ProposedAt:      time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.StoreProposal(ctx, proposal))

	got, err := store.GetProposal(ctx, "general", 4)
	require.NoError(t, err)
	assert.Equal(t, "new", got.ProposedPrompt)

	require.NoError(t, store.DeleteProposal(ctx, "general", 4))
	_, err = store.GetProposal(ctx, "general", 4)
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestProposalStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewProposalStore(backend, zerolog.Nop())

	base := time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)
	for i, promptID := range []string{"general", "blog", "general"} {
		require.NoError(t, store.StoreProposal(ctx, &models.MutationProposal{
			PromptID:   promptID,
			NewVersion: i + 2,
			ProposedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := store.ListProposals(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, base.Add(2*time.Hour), all[0].ProposedAt)

	general, err := store.ListProposals(ctx, "general")
	require.NoError(t, err)
	assert.Len(t, general, 2)
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfileStore_LazyCreation(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := NewProfileStore(backend, zerolog.Nop())

	_, err := store.GetProfile(ctx, "user-1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	profile, err := store.GetOrCreateProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StyleBalanced, profile.Preferences.ResponseStyle)

	profile.Preferences.DetailLevel = models.DetailDetailed
	require.NoError(t, store.SaveProfile(ctx, profile))

	again, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.DetailDetailed, again.Preferences.DetailLevel)
}
