package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/pkg/models"
)

// EventStore owns the raw feedback events the aggregator consumes.
// Events are written by the serving UI through the worker API and kept
// long enough to cover the largest aggregation window plus reruns.
type EventStore struct {
	kv     kv.Store
	logger zerolog.Logger
}

// NewEventStore creates an event store over the given backend.
func NewEventStore(backend kv.Store, logger zerolog.Logger) *EventStore {
	return &EventStore{
		kv:     backend,
		logger: logger.With().Str("component", "event-store").Logger(),
	}
}

// RecordEvent persists one raw feedback event.
func (s *EventStore) RecordEvent(ctx context.Context, event *models.FeedbackEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := eventKey(event.PromptID, event.CreatedAt, event.ID)
	if err := s.kv.Set(ctx, key, data, eventTTL); err != nil {
		return fmt.Errorf("save event %q: %w", key, err)
	}
	return nil
}

// ListEvents returns the events for promptID whose timestamp falls in
// [start, end), oldest first. The window filter runs on the key
// timestamps so out-of-window records are never fetched.
func (s *EventStore) ListEvents(ctx context.Context, promptID string, start, end time.Time) ([]*models.FeedbackEvent, error) {
	keys, err := s.kv.ListKeys(ctx, eventScanPrefix(promptID))
	if err != nil {
		return nil, fmt.Errorf("list event keys: %w", err)
	}
	sort.Strings(keys)

	startMillis := start.UTC().UnixMilli()
	endMillis := end.UTC().UnixMilli()

	var events []*models.FeedbackEvent
	for _, key := range keys {
		millis, ok := eventKeyMillis(key, promptID)
		if !ok || millis < startMillis || millis >= endMillis {
			continue
		}

		data, err := s.kv.Get(ctx, key)
		if err == kv.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load event %q: %w", key, err)
		}

		var event models.FeedbackEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Skipping undecodable event")
			continue
		}
		// The prefix scan can cross prompt namespaces when a longer id
		// like "general:1742393100000" has a numeric segment that parses
		// as a timestamp under "general". Trust the decoded record.
		if event.PromptID != promptID {
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}
