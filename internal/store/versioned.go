// Package store provides typed, versioned accessors over the key-value
// collaborator for the four record kinds evolvd persists: evolving
// prompts, feedback aggregations, preference profiles, and mutation
// proposals.
//
// The store performs unconditional read-modify-write with no
// compare-and-swap; version numbers are only meaningful under a single
// writer per key.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/pkg/models"
)

// PromptStore owns the evolving-prompt record kind.
type PromptStore struct {
	kv     kv.Store
	logger zerolog.Logger
}

// NewPromptStore creates a prompt store over the given key-value backend.
func NewPromptStore(backend kv.Store, logger zerolog.Logger) *PromptStore {
	return &PromptStore{
		kv:     backend,
		logger: logger.With().Str("component", "prompt-store").Logger(),
	}
}

// GetPrompt returns the prompt record for promptID, or ErrPromptNotFound.
func (s *PromptStore) GetPrompt(ctx context.Context, promptID string) (*models.EvolvingPrompt, error) {
	data, err := s.kv.Get(ctx, promptKey(promptID))
	if err == kv.ErrKeyNotFound {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load prompt %q: %w", promptID, err)
	}

	var prompt models.EvolvingPrompt
	if err := json.Unmarshal(data, &prompt); err != nil {
		return nil, fmt.Errorf("decode prompt %q: %w", promptID, err)
	}
	return &prompt, nil
}

// GetOrCreatePrompt returns the existing record for promptID, creating it
// at version 1 when absent. Creation requires a non-empty basePrompt and
// fails with ErrMissingBasePrompt otherwise.
func (s *PromptStore) GetOrCreatePrompt(ctx context.Context, promptID, basePrompt string, boundaries []string) (*models.EvolvingPrompt, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err == nil {
		return prompt, nil
	}
	if err != ErrPromptNotFound {
		return nil, err
	}

	if strings.TrimSpace(basePrompt) == "" {
		return nil, ErrMissingBasePrompt
	}

	prompt = models.NewEvolvingPrompt(promptID, basePrompt, boundaries)
	if err := s.savePrompt(ctx, prompt); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prompt_id", promptID).
		Int("boundaries", len(boundaries)).
		Msg("Evolving prompt created")
	return prompt, nil
}

// ListPromptIDs returns the ids of all evolving prompts.
func (s *PromptStore) ListPromptIDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.ListKeys(ctx, promptKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list prompt keys: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, promptKeyPrefix))
	}
	return ids, nil
}

// CommitEvolution replaces the live prompt text: the current state is
// appended to history (trimmed to MaxHistoryEntries, oldest first), the
// version increments by exactly one, and the evolution counters advance.
func (s *PromptStore) CommitEvolution(ctx context.Context, promptID, newPrompt, reason string, perf models.PromptPerformance) (*models.EvolvingPrompt, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s.appendHistory(prompt, reason, now)

	prompt.CurrentPrompt = newPrompt
	prompt.Version++
	prompt.Performance = perf
	prompt.Evolution.EvolutionCount++
	prompt.Evolution.LastUpdated = now

	if err := s.savePrompt(ctx, prompt); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prompt_id", promptID).
		Int("version", prompt.Version).
		Str("reason", reason).
		Msg("Evolution committed")
	return prompt, nil
}

// Rollback restores the prompt text of targetVersion from history. The
// version still increments by one — version numbers are never reused —
// and a history entry describing the rollback is appended.
func (s *PromptStore) Rollback(ctx context.Context, promptID string, targetVersion int) (*models.EvolvingPrompt, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	var target *models.PromptSnapshot
	for i := range prompt.History {
		if prompt.History[i].Version == targetVersion {
			target = &prompt.History[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("rollback %q to v%d: %w", promptID, targetVersion, ErrVersionNotFound)
	}

	now := time.Now().UTC()
	restored := target.Prompt
	s.appendHistory(prompt, fmt.Sprintf("Rolled back to version %d", targetVersion), now)

	prompt.CurrentPrompt = restored
	prompt.Version++
	prompt.Evolution.LastUpdated = now

	if err := s.savePrompt(ctx, prompt); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("prompt_id", promptID).
		Int("restored_version", targetVersion).
		Int("version", prompt.Version).
		Msg("Prompt rolled back")
	return prompt, nil
}

// SetCooldown excludes the prompt from automatic evolution until now+d.
// This is a policy window, not a mutual-exclusion lock.
func (s *PromptStore) SetCooldown(ctx context.Context, promptID string, d time.Duration) error {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return err
	}

	until := time.Now().UTC().Add(d)
	prompt.Evolution.CooldownUntil = &until

	if err := s.savePrompt(ctx, prompt); err != nil {
		return err
	}

	s.logger.Info().
		Str("prompt_id", promptID).
		Time("until", until).
		Msg("Evolution cooldown set")
	return nil
}

// InCooldown reports whether the prompt is currently excluded from
// automatic evolution.
func (s *PromptStore) InCooldown(ctx context.Context, promptID string) (bool, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return false, err
	}
	return prompt.InCooldown(time.Now().UTC()), nil
}

// UpdatePerformance refreshes the prompt's last-computed performance
// block without touching version or history.
func (s *PromptStore) UpdatePerformance(ctx context.Context, promptID string, perf models.PromptPerformance) error {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return err
	}
	prompt.Performance = perf
	return s.savePrompt(ctx, prompt)
}

// appendHistory snapshots the prompt's current state and trims the
// history to MaxHistoryEntries, dropping the oldest entries.
func (s *PromptStore) appendHistory(prompt *models.EvolvingPrompt, reason string, now time.Time) {
	prompt.History = append(prompt.History, models.PromptSnapshot{
		Version:     prompt.Version,
		Prompt:      prompt.CurrentPrompt,
		Performance: prompt.Performance,
		Timestamp:   now,
		Reason:      reason,
	})
	if len(prompt.History) > models.MaxHistoryEntries {
		prompt.History = prompt.History[len(prompt.History)-models.MaxHistoryEntries:]
	}
}

func (s *PromptStore) savePrompt(ctx context.Context, prompt *models.EvolvingPrompt) error {
	data, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("encode prompt %q: %w", prompt.ID, err)
	}
	if err := s.kv.Set(ctx, promptKey(prompt.ID), data, 0); err != nil {
		return fmt.Errorf("save prompt %q: %w", prompt.ID, err)
	}
	return nil
}
