// Package feedback turns raw feedback events into time-bucketed
// aggregations and keeps per-user preference profiles current.
package feedback

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitelore/evolvd/pkg/models"
)

// EventSource is the subset of event-store methods the aggregator needs.
type EventSource interface {
	ListEvents(ctx context.Context, promptID string, start, end time.Time) ([]*models.FeedbackEvent, error)
}

// AggregationSink persists completed aggregations.
type AggregationSink interface {
	StoreAggregation(ctx context.Context, agg *models.FeedbackAggregation) error
}

// PromptLister enumerates the prompts a cycle covers.
type PromptLister interface {
	ListPromptIDs(ctx context.Context) ([]string, error)
}

// ProfileAccess is the subset of profile-store methods the aggregator
// needs.
type ProfileAccess interface {
	GetOrCreateProfile(ctx context.Context, userID string) (*models.UserPreferenceProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserPreferenceProfile) error
}

// Aggregator is the batch job that summarizes one aggregation window per
// prompt and refreshes the preference profiles of the users seen in it.
type Aggregator struct {
	events   EventSource
	sink     AggregationSink
	prompts  PromptLister
	profiles ProfileAccess
	miner    *Miner
	logger   zerolog.Logger
}

// NewAggregator creates an aggregator using the given collaborators.
func NewAggregator(events EventSource, sink AggregationSink, prompts PromptLister, profiles ProfileAccess, lexicon Lexicon, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		events:   events,
		sink:     sink,
		prompts:  prompts,
		profiles: profiles,
		miner:    NewMiner(lexicon),
		logger:   logger.With().Str("component", "feedback-aggregator").Logger(),
	}
}

// Aggregate summarizes the window [windowStart, windowStart+period) for
// one prompt, persists the aggregation with the period's retention TTL,
// and updates the profiles of every user who gave feedback in the window.
func (a *Aggregator) Aggregate(ctx context.Context, promptID string, period models.AggregationPeriod, windowStart time.Time) (*models.FeedbackAggregation, error) {
	windowStart = windowStart.UTC()
	windowEnd := period.WindowEnd(windowStart)

	events, err := a.events.ListEvents(ctx, promptID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	agg := models.NewFeedbackAggregation(promptID, period, windowStart)
	for _, event := range events {
		switch event.Type {
		case models.FeedbackPositive:
			agg.Metrics.Positive++
		case models.FeedbackNegative:
			agg.Metrics.Negative++
		case models.FeedbackEdit:
			agg.Metrics.Edits++
		}
	}
	agg.Metrics.TotalInteractions = agg.Metrics.Positive + agg.Metrics.Negative + agg.Metrics.Edits
	agg.Metrics.Patterns = a.miner.Mine(events)

	if err := a.sink.StoreAggregation(ctx, agg); err != nil {
		return nil, err
	}

	a.updateProfilesFromBatch(ctx, events)

	a.logger.Info().
		Str("prompt_id", promptID).
		Str("period", string(period)).
		Time("window_start", windowStart).
		Int("events", len(events)).
		Int("patterns", len(agg.Metrics.Patterns)).
		Msg("Feedback window aggregated")
	return agg, nil
}

// RunCycle aggregates the canonical current window for every known
// prompt. Per-prompt failures are logged and skipped; the returned count
// covers prompts aggregated successfully.
func (a *Aggregator) RunCycle(ctx context.Context, period models.AggregationPeriod) (int, error) {
	promptIDs, err := a.prompts.ListPromptIDs(ctx)
	if err != nil {
		return 0, err
	}

	windowStart := period.WindowStart(time.Now())
	aggregated := 0
	for _, promptID := range promptIDs {
		if _, err := a.Aggregate(ctx, promptID, period, windowStart); err != nil {
			a.logger.Error().Err(err).
				Str("prompt_id", promptID).
				Str("period", string(period)).
				Msg("Aggregation failed, continuing cycle")
			continue
		}
		aggregated++
	}

	a.logger.Info().
		Str("period", string(period)).
		Int("prompts", len(promptIDs)).
		Int("aggregated", aggregated).
		Msg("Aggregation cycle complete")
	return aggregated, nil
}

// UpdatePreferences recomputes a user's positive ratio from the batch
// and nudges style preferences using the batch's edit-pattern labels.
// The last label in loop order wins; there is no merge logic.
func (a *Aggregator) UpdatePreferences(ctx context.Context, userID string, recent []*models.FeedbackEvent) error {
	profile, err := a.profiles.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return err
	}

	positive, negative := 0, 0
	for _, event := range recent {
		switch event.Type {
		case models.FeedbackPositive:
			positive++
		case models.FeedbackNegative:
			negative++
		}
	}
	if positive+negative > 0 {
		profile.LearningHistory.PositiveRatio = float64(positive) / float64(positive+negative)
	}
	profile.LearningHistory.TotalFeedback += len(recent)
	profile.LearningHistory.LastUpdated = time.Now().UTC()

	for _, pattern := range a.miner.Mine(recent) {
		switch pattern.Label {
		case PatternRemovedJargon, PatternMoreConversational:
			profile.Preferences.ResponseStyle = models.StyleConversational
		case PatternMoreFormal:
			profile.Preferences.ResponseStyle = models.StyleTechnical
		case PatternShortened:
			profile.Preferences.DetailLevel = models.DetailConcise
		case PatternExpanded, PatternAddedExamples:
			profile.Preferences.DetailLevel = models.DetailDetailed
		}
	}

	return a.profiles.SaveProfile(ctx, profile)
}

// updateProfilesFromBatch groups a window's events by user and applies
// UpdatePreferences per user. Profile failures never fail the
// aggregation that produced them.
func (a *Aggregator) updateProfilesFromBatch(ctx context.Context, events []*models.FeedbackEvent) {
	byUser := make(map[string][]*models.FeedbackEvent)
	for _, event := range events {
		if event.UserID == "" {
			continue
		}
		byUser[event.UserID] = append(byUser[event.UserID], event)
	}

	for userID, userEvents := range byUser {
		if err := a.UpdatePreferences(ctx, userID, userEvents); err != nil {
			a.logger.Warn().Err(err).Str("user_id", userID).Msg("Preference update failed")
		}
	}
}
