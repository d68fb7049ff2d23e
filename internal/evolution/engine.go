// Package evolution analyzes aggregated feedback and proposes prompt
// mutations. Proposals always pass through validation and then wait for
// human review; the engine never rewrites a live prompt on its own.
package evolution

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitelore/evolvd/pkg/models"
)

// Recommendation is the outcome of analyzing a prompt's recent window.
type Recommendation string

const (
	// RecommendMaintain means performance is fine or evidence is thin.
	RecommendMaintain Recommendation = "maintain"
	// RecommendEvolve means performance degraded enough to draft a mutation.
	RecommendEvolve Recommendation = "evolve"
	// RecommendReview means performance is bad enough that a human should
	// look before any automatic mutation is drafted.
	RecommendReview Recommendation = "review"
)

// PerformanceAnalysis summarizes one prompt's recent aggregation window.
type PerformanceAnalysis struct {
	PromptID          string               `json:"promptId"`
	SuccessRate       float64              `json:"successRate"`
	EditRate          float64              `json:"editRate"`
	TotalInteractions int                  `json:"totalInteractions"`
	TopPatterns       []models.EditPattern `json:"topPatterns,omitempty"`
	Recommendation    Recommendation       `json:"recommendation"`
}

// PromptProvider is the slice of the versioned store the engine reads.
type PromptProvider interface {
	ListPromptIDs(ctx context.Context) ([]string, error)
	GetPrompt(ctx context.Context, promptID string) (*models.EvolvingPrompt, error)
	UpdatePerformance(ctx context.Context, promptID string, perf models.PromptPerformance) error
}

// AggregationProvider supplies recent feedback summaries.
type AggregationProvider interface {
	ListAggregations(ctx context.Context, promptID string, period models.AggregationPeriod, limit int) ([]*models.FeedbackAggregation, error)
}

// ProposalSink persists validated mutation proposals for review.
type ProposalSink interface {
	StoreProposal(ctx context.Context, proposal *models.MutationProposal) error
}

// Generator produces text from a system instruction and a user message.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Notifier announces a stored proposal to reviewers. Implementations are
// fire-and-forget; failures must not affect the cycle.
type Notifier interface {
	NotifyProposal(ctx context.Context, proposal *models.MutationProposal)
}

// Config holds the evolution thresholds and validation fixtures.
type Config struct {
	// AnalysisWindowDays is how many daily aggregations feed one analysis.
	AnalysisWindowDays int `yaml:"analysis_window_days"`
	// MinInteractions gates analysis; below it the verdict is maintain.
	MinInteractions int `yaml:"min_interactions"`

	// EvolveSuccessRate / EvolveEditRate trigger a mutation draft.
	EvolveSuccessRate float64 `yaml:"evolve_success_rate"`
	EvolveEditRate    float64 `yaml:"evolve_edit_rate"`
	// ReviewSuccessRate / ReviewEditRate flag for human review instead.
	ReviewSuccessRate float64 `yaml:"review_success_rate"`
	ReviewEditRate    float64 `yaml:"review_edit_rate"`

	// TopPatterns caps the merged edit patterns carried into a proposal.
	TopPatterns int `yaml:"top_patterns"`

	// RegressionQueries is the fixed panel run against every candidate.
	RegressionQueries []string `yaml:"regression_queries"`
	// MinRegressionResponseLen rejects degenerate panel answers.
	MinRegressionResponseLen int `yaml:"min_regression_response_len"`
	// InjectionPhrases fail the safety gate when present in a candidate.
	InjectionPhrases []string `yaml:"injection_phrases"`
}

// DefaultConfig returns the default evolution settings.
func DefaultConfig() Config {
	return Config{
		AnalysisWindowDays:       7,
		MinInteractions:          50,
		EvolveSuccessRate:        0.7,
		EvolveEditRate:           0.3,
		ReviewSuccessRate:        0.5,
		ReviewEditRate:           0.5,
		TopPatterns:              5,
		MinRegressionResponseLen: 20,
		RegressionQueries: []string{
			"Draft a short reply to a client asking about availability for a portrait session next month.",
			"Suggest a title and opening paragraph for a blog post about a recent outdoor wedding shoot.",
			"A client says the delivered gallery feels too dark. Write a considerate response with next steps.",
		},
		InjectionPhrases: []string{
			"ignore previous",
			"ignore all previous",
			"disregard your instructions",
			"you are now",
			"bypass",
			"jailbreak",
		},
	}
}

// Engine runs the periodic evolution cycle.
type Engine struct {
	cfg       Config
	prompts   PromptProvider
	aggs      AggregationProvider
	proposals ProposalSink
	generator Generator
	validator *Validator
	notifier  Notifier
	logger    zerolog.Logger
}

// NewEngine wires an evolution engine. notifier may be nil.
func NewEngine(cfg Config, prompts PromptProvider, aggs AggregationProvider, proposals ProposalSink, gen Generator, notifier Notifier, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		prompts:   prompts,
		aggs:      aggs,
		proposals: proposals,
		generator: gen,
		validator: NewValidator(gen, cfg),
		notifier:  notifier,
		logger:    logger.With().Str("component", "evolution-engine").Logger(),
	}
}

// AnalyzePerformance folds the prompt's recent daily aggregations into
// one verdict. With no polarity feedback the success rate defaults to
// 0.5; with no interactions the edit rate defaults to 0.
func (e *Engine) AnalyzePerformance(ctx context.Context, promptID string) (*PerformanceAnalysis, error) {
	aggs, err := e.aggs.ListAggregations(ctx, promptID, models.PeriodDay, e.cfg.AnalysisWindowDays)
	if err != nil {
		return nil, fmt.Errorf("analyze %q: %w", promptID, err)
	}

	var positive, negative, edits, total int
	patternTotals := make(map[string]*models.EditPattern)
	var patternOrder []string

	for _, agg := range aggs {
		positive += agg.Metrics.Positive
		negative += agg.Metrics.Negative
		edits += agg.Metrics.Edits
		total += agg.Metrics.TotalInteractions

		for _, p := range agg.Metrics.Patterns {
			merged, ok := patternTotals[p.Label]
			if !ok {
				merged = &models.EditPattern{Label: p.Label}
				patternTotals[p.Label] = merged
				patternOrder = append(patternOrder, p.Label)
			}
			merged.Frequency += p.Frequency
			for _, ex := range p.Examples {
				merged.AddExample(ex)
			}
		}
	}

	analysis := &PerformanceAnalysis{
		PromptID:    promptID,
		SuccessRate: 0.5,
	}
	if positive+negative > 0 {
		analysis.SuccessRate = float64(positive) / float64(positive+negative)
	}
	if total > 0 {
		analysis.EditRate = float64(edits) / float64(total)
	}
	analysis.TotalInteractions = total
	analysis.TopPatterns = topPatterns(patternTotals, patternOrder, e.cfg.TopPatterns)
	analysis.Recommendation = e.recommend(analysis)
	return analysis, nil
}

// recommend applies the decision thresholds. The review band is checked
// before the evolve band: a prompt doing badly enough to need human eyes
// must not be silently mutated just because it also clears the weaker
// evolve thresholds.
func (e *Engine) recommend(a *PerformanceAnalysis) Recommendation {
	if a.TotalInteractions < e.cfg.MinInteractions {
		return RecommendMaintain
	}
	if a.SuccessRate < e.cfg.ReviewSuccessRate || a.EditRate > e.cfg.ReviewEditRate {
		return RecommendReview
	}
	if a.SuccessRate < e.cfg.EvolveSuccessRate || a.EditRate > e.cfg.EvolveEditRate {
		return RecommendEvolve
	}
	return RecommendMaintain
}

// topPatterns sorts merged patterns by descending frequency, first-seen
// order breaking ties, and keeps the top n.
func topPatterns(totals map[string]*models.EditPattern, order []string, n int) []models.EditPattern {
	result := make([]models.EditPattern, 0, len(order))
	for _, label := range order {
		result = append(result, *totals[label])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Frequency > result[j].Frequency
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}

// EvolvePrompt analyzes one prompt and, when the verdict is evolve,
// drafts and validates a mutation. The returned proposal is nil when the
// prompt is maintained, flagged for review, in cooldown, or the
// candidate fails validation.
func (e *Engine) EvolvePrompt(ctx context.Context, promptID string) (*models.MutationProposal, error) {
	prompt, err := e.prompts.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	if prompt.InCooldown(time.Now().UTC()) {
		e.logger.Debug().Str("prompt_id", promptID).Msg("Prompt in cooldown, skipping")
		return nil, nil
	}

	analysis, err := e.AnalyzePerformance(ctx, promptID)
	if err != nil {
		return nil, err
	}

	// Keep the stored performance block current regardless of verdict.
	perf := models.PromptPerformance{
		SuccessRate:       analysis.SuccessRate,
		EditRate:          analysis.EditRate,
		TotalInteractions: analysis.TotalInteractions,
		LastCalculated:    time.Now().UTC(),
	}
	if err := e.prompts.UpdatePerformance(ctx, promptID, perf); err != nil {
		e.logger.Warn().Err(err).Str("prompt_id", promptID).Msg("Failed to refresh prompt performance")
	}

	switch analysis.Recommendation {
	case RecommendMaintain:
		return nil, nil
	case RecommendReview:
		e.logger.Warn().
			Str("prompt_id", promptID).
			Float64("success_rate", analysis.SuccessRate).
			Float64("edit_rate", analysis.EditRate).
			Msg("Prompt flagged for human review")
		return nil, nil
	}

	candidate, err := e.generator.Generate(ctx, mutationSystemPrompt, buildMutationPrompt(prompt, analysis))
	if err != nil {
		return nil, fmt.Errorf("generate mutation for %q: %w", promptID, err)
	}

	validation := e.validator.Validate(ctx, candidate, prompt.Evolution.Boundaries)
	if !validation.Passed {
		e.logger.Warn().
			Str("prompt_id", promptID).
			Strs("details", validation.Details).
			Msg("Mutation rejected by validation")
		return nil, nil
	}

	proposal := &models.MutationProposal{
		PromptID:        promptID,
		OriginalVersion: prompt.Version,
		NewVersion:      prompt.Version + 1,
		OriginalPrompt:  prompt.CurrentPrompt,
		ProposedPrompt:  candidate,
		PerformanceSummary: models.PerformanceSummary{
			SuccessRate:       analysis.SuccessRate,
			EditRate:          analysis.EditRate,
			TotalInteractions: analysis.TotalInteractions,
			TopPatterns:       analysis.TopPatterns,
		},
		ValidationResults: validation,
		ProposedAt:        time.Now().UTC(),
	}

	if err := e.proposals.StoreProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("store proposal for %q: %w", promptID, err)
	}

	e.logger.Info().
		Str("prompt_id", promptID).
		Int("original_version", proposal.OriginalVersion).
		Int("new_version", proposal.NewVersion).
		Msg("Mutation proposal stored")

	if e.notifier != nil {
		e.notifier.NotifyProposal(ctx, proposal)
	}
	return proposal, nil
}

// RunEvolutionCycle evolves every known prompt sequentially. A failure
// on one prompt is logged and does not stop the cycle.
func (e *Engine) RunEvolutionCycle(ctx context.Context) ([]*models.MutationProposal, error) {
	ids, err := e.prompts.ListPromptIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("evolution cycle: %w", err)
	}

	var proposals []*models.MutationProposal
	for _, id := range ids {
		proposal, err := e.EvolvePrompt(ctx, id)
		if err != nil {
			e.logger.Error().Err(err).Str("prompt_id", id).Msg("Evolution failed for prompt")
			continue
		}
		if proposal != nil {
			proposals = append(proposals, proposal)
		}
	}

	e.logger.Info().
		Int("prompts", len(ids)).
		Int("proposals", len(proposals)).
		Msg("Evolution cycle complete")
	return proposals, nil
}
