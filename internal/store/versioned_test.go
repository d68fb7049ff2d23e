package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/pkg/models"
)

// PromptStoreSuite is a test suite for the versioned prompt store.
type PromptStoreSuite struct {
	suite.Suite
	ctx     context.Context
	backend *kv.MemoryStore
	store   *PromptStore
}

func (s *PromptStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = kv.NewMemoryStore()
	s.store = NewPromptStore(s.backend, zerolog.Nop())
}

func TestPromptStoreSuite(t *testing.T) {
	suite.Run(t, new(PromptStoreSuite))
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *PromptStoreSuite) TestGetOrCreatePrompt_CreatesAtVersionOne() {
	prompt, err := s.store.GetOrCreatePrompt(s.ctx, "general", "Be helpful.", []string{"never invent prices"})
	s.Require().NoError(err)

	s.Equal("general", prompt.ID)
	s.Equal(1, prompt.Version)
	s.Equal("Be helpful.", prompt.CurrentPrompt)
	s.Equal([]string{"never invent prices"}, prompt.Evolution.Boundaries)
}

func (s *PromptStoreSuite) TestGetOrCreatePrompt_ReturnsExistingUnchanged() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "Original.", nil)
	s.Require().NoError(err)

	// A second call with a different base must not overwrite anything.
	prompt, err := s.store.GetOrCreatePrompt(s.ctx, "general", "Different base.", nil)
	s.Require().NoError(err)
	s.Equal("Original.", prompt.CurrentPrompt)
	s.Equal(1, prompt.Version)
}

func (s *PromptStoreSuite) TestCommitEvolution_IncrementsVersionByOne() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "v1 text", nil)
	s.Require().NoError(err)

	perf := models.PromptPerformance{SuccessRate: 0.8, LastCalculated: time.Now().UTC()}
	prompt, err := s.store.CommitEvolution(s.ctx, "general", "v2 text", "Approved mutation proposal", perf)
	s.Require().NoError(err)

	s.Equal(2, prompt.Version)
	s.Equal("v2 text", prompt.CurrentPrompt)
	s.Equal(1, prompt.Evolution.EvolutionCount)
	s.Require().Len(prompt.History, 1)
	s.Equal(1, prompt.History[0].Version)
	s.Equal("v1 text", prompt.History[0].Prompt)
}

func (s *PromptStoreSuite) TestCommitEvolution_HistoryCapDropsOldest() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "v1", nil)
	s.Require().NoError(err)

	perf := models.PromptPerformance{SuccessRate: 0.5}
	for i := 2; i <= 13; i++ {
		_, err := s.store.CommitEvolution(s.ctx, "general", fmt.Sprintf("v%d", i), "tuning", perf)
		s.Require().NoError(err)
	}

	prompt, err := s.store.GetPrompt(s.ctx, "general")
	s.Require().NoError(err)

	s.Equal(13, prompt.Version)
	s.Require().Len(prompt.History, models.MaxHistoryEntries)
	// After 12 commits the snapshots for v1 and v2 have been evicted.
	s.Equal(3, prompt.History[0].Version)
	s.Equal(12, prompt.History[len(prompt.History)-1].Version)
}

func (s *PromptStoreSuite) TestRollback_RestoresTextWithNewVersion() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "v1", nil)
	s.Require().NoError(err)

	perf := models.PromptPerformance{SuccessRate: 0.5}
	for i := 2; i <= 5; i++ {
		_, err := s.store.CommitEvolution(s.ctx, "general", fmt.Sprintf("v%d", i), "tuning", perf)
		s.Require().NoError(err)
	}

	prompt, err := s.store.Rollback(s.ctx, "general", 2)
	s.Require().NoError(err)

	s.Equal(6, prompt.Version, "rollback mints a new version, never reuses one")
	s.Equal("v2", prompt.CurrentPrompt)
	s.Equal("Rolled back to version 2", prompt.History[len(prompt.History)-1].Reason)
	// The rolled-away v5 text stays reachable in history.
	s.Equal("v5", prompt.History[len(prompt.History)-1].Prompt)
}

func (s *PromptStoreSuite) TestSetCooldown() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "v1", nil)
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetCooldown(s.ctx, "general", time.Hour))

	cooling, err := s.store.InCooldown(s.ctx, "general")
	s.Require().NoError(err)
	s.True(cooling)
}

func (s *PromptStoreSuite) TestUpdatePerformance_DoesNotTouchVersion() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "v1", nil)
	s.Require().NoError(err)

	perf := models.PromptPerformance{SuccessRate: 0.9, EditRate: 0.1, TotalInteractions: 200}
	s.Require().NoError(s.store.UpdatePerformance(s.ctx, "general", perf))

	prompt, err := s.store.GetPrompt(s.ctx, "general")
	s.Require().NoError(err)
	s.Equal(1, prompt.Version)
	s.Empty(prompt.History)
	s.InDelta(0.9, prompt.Performance.SuccessRate, 0.001)
}

func (s *PromptStoreSuite) TestListPromptIDs() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "a", nil)
	s.Require().NoError(err)
	_, err = s.store.GetOrCreatePrompt(s.ctx, "general:user-1", "b", nil)
	s.Require().NoError(err)

	ids, err := s.store.ListPromptIDs(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"general", "general:user-1"}, ids)
}

// =============================================================================
// BAD SCENARIOS - Error handling
// =============================================================================

func (s *PromptStoreSuite) TestGetPrompt_NotFound() {
	_, err := s.store.GetPrompt(s.ctx, "missing")
	s.ErrorIs(err, ErrPromptNotFound)
}

func (s *PromptStoreSuite) TestGetOrCreatePrompt_MissingBasePrompt() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "   ", nil)
	s.ErrorIs(err, ErrMissingBasePrompt)
}

func (s *PromptStoreSuite) TestRollback_UnknownVersion() {
	_, err := s.store.GetOrCreatePrompt(s.ctx, "general", "v1", nil)
	s.Require().NoError(err)

	_, err = s.store.Rollback(s.ctx, "general", 9)
	s.ErrorIs(err, ErrVersionNotFound)
}
