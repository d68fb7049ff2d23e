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

// ProposalStore owns pending mutation proposals. Proposals live in a key
// namespace distinct from live prompts so a candidate revision can never
// be mistaken for committed state, and they expire after proposalTTL.
type ProposalStore struct {
	kv     kv.Store
	logger zerolog.Logger
}

// NewProposalStore creates a proposal store over the given backend.
func NewProposalStore(backend kv.Store, logger zerolog.Logger) *ProposalStore {
	return &ProposalStore{
		kv:     backend,
		logger: logger.With().Str("component", "proposal-store").Logger(),
	}
}

// StoreProposal persists a validated proposal for human review.
func (s *ProposalStore) StoreProposal(ctx context.Context, proposal *models.MutationProposal) error {
	data, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}

	key := proposalKey(proposal.PromptID, proposal.NewVersion)
	if err := s.kv.Set(ctx, key, data, proposalTTL); err != nil {
		return fmt.Errorf("save proposal %q: %w", key, err)
	}

	s.logger.Info().
		Str("prompt_id", proposal.PromptID).
		Int("new_version", proposal.NewVersion).
		Msg("Mutation proposal stored for review")
	return nil
}

// GetProposal returns the pending proposal targeting newVersion of a
// prompt, or ErrProposalNotFound.
func (s *ProposalStore) GetProposal(ctx context.Context, promptID string, newVersion int) (*models.MutationProposal, error) {
	data, err := s.kv.Get(ctx, proposalKey(promptID, newVersion))
	if err == kv.ErrKeyNotFound {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load proposal %q v%d: %w", promptID, newVersion, err)
	}

	var proposal models.MutationProposal
	if err := json.Unmarshal(data, &proposal); err != nil {
		return nil, fmt.Errorf("decode proposal %q v%d: %w", promptID, newVersion, err)
	}
	return &proposal, nil
}

// ListProposals returns pending proposals, newest first. An empty
// promptID lists proposals for all prompts.
func (s *ProposalStore) ListProposals(ctx context.Context, promptID string) ([]*models.MutationProposal, error) {
	prefix := proposalKeyPrefix
	if promptID != "" {
		prefix += promptID + ":"
	}

	keys, err := s.kv.ListKeys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list proposal keys: %w", err)
	}

	proposals := make([]*models.MutationProposal, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err == kv.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load proposal %q: %w", key, err)
		}

		var proposal models.MutationProposal
		if err := json.Unmarshal(data, &proposal); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Skipping undecodable proposal")
			continue
		}
		// The prefix scan also matches prompts whose id extends the
		// requested one ("general" vs "general:user-1").
		if promptID != "" && proposal.PromptID != promptID {
			continue
		}
		proposals = append(proposals, &proposal)
	}

	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].ProposedAt.After(proposals[j].ProposedAt)
	})
	return proposals, nil
}

// DeleteProposal removes a proposal, typically after it has been applied
// or rejected by a reviewer.
func (s *ProposalStore) DeleteProposal(ctx context.Context, promptID string, newVersion int) error {
	if err := s.kv.Delete(ctx, proposalKey(promptID, newVersion)); err != nil {
		return fmt.Errorf("delete proposal %q v%d: %w", promptID, newVersion, err)
	}
	return nil
}
