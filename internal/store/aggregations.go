package store

import (
	"context"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/pkg/models"
)

// AggregationStore owns the time-bucketed feedback summaries. Records are
// immutable once written and expire per the period's retention TTL.
type AggregationStore struct {
	kv     kv.Store
	logger zerolog.Logger
}

// NewAggregationStore creates an aggregation store over the given backend.
func NewAggregationStore(backend kv.Store, logger zerolog.Logger) *AggregationStore {
	return &AggregationStore{
		kv:     backend,
		logger: logger.With().Str("component", "aggregation-store").Logger(),
	}
}

// StoreAggregation persists one aggregation with its period-derived TTL.
func (s *AggregationStore) StoreAggregation(ctx context.Context, agg *models.FeedbackAggregation) error {
	data, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("encode aggregation: %w", err)
	}

	key := aggregationKey(agg.PromptID, string(agg.Period), agg.StartTime)
	if err := s.kv.Set(ctx, key, data, agg.Period.RetentionTTL()); err != nil {
		return fmt.Errorf("save aggregation %q: %w", key, err)
	}
	return nil
}

// ListAggregations returns up to limit aggregations for one prompt and
// period, most recent window first. Records that expire between the key
// scan and the read are skipped.
func (s *AggregationStore) ListAggregations(ctx context.Context, promptID string, period models.AggregationPeriod, limit int) ([]*models.FeedbackAggregation, error) {
	keys, err := s.kv.ListKeys(ctx, aggregationScanPrefix(promptID, string(period)))
	if err != nil {
		return nil, fmt.Errorf("list aggregation keys: %w", err)
	}

	// Key timestamps sort lexicographically in chronological order.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	aggs := make([]*models.FeedbackAggregation, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err == kv.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load aggregation %q: %w", key, err)
		}

		var agg models.FeedbackAggregation
		if err := json.Unmarshal(data, &agg); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Skipping undecodable aggregation")
			continue
		}
		if agg.PromptID != promptID {
			continue
		}
		aggs = append(aggs, &agg)
	}
	return aggs, nil
}
