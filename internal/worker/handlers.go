package worker

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/sitelore/evolvd/internal/store"
	"github.com/sitelore/evolvd/pkg/models"
)

// Handler configuration constants
const (
	// DefaultAggregationsLimit is the default number of aggregation
	// windows returned per prompt.
	DefaultAggregationsLimit = 30
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth handles health check requests.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleVersion returns the service version.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// ---------------------------------------------------------------------------
// Feedback ingestion
// ---------------------------------------------------------------------------

type recordFeedbackRequest struct {
	PromptID   string `json:"promptId"`
	UserID     string `json:"userId"`
	Type       string `json:"type"`
	Suggestion string `json:"suggestion"`
	EditedText string `json:"editedText"`
	Comment    string `json:"comment"`
}

// handleRecordFeedback stores one raw feedback event for later
// aggregation.
func (s *Service) handleRecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req recordFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PromptID == "" {
		writeError(w, http.StatusBadRequest, "promptId is required")
		return
	}
	if !models.ValidFeedbackType(req.Type) {
		writeError(w, http.StatusBadRequest, "type must be positive, negative or edit")
		return
	}

	event := models.NewFeedbackEvent(req.PromptID, req.UserID, models.FeedbackType(req.Type))
	event.Suggestion = req.Suggestion
	event.EditedText = req.EditedText
	event.Comment = req.Comment

	if err := s.events.RecordEvent(r.Context(), event); err != nil {
		log.Error().Err(err).Str("prompt_id", req.PromptID).Msg("Failed to record feedback event")
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": event.ID})
}

// ---------------------------------------------------------------------------
// Evolving prompts
// ---------------------------------------------------------------------------

type createPromptRequest struct {
	Segment    string   `json:"segment"`
	UserID     string   `json:"userId"`
	BasePrompt string   `json:"basePrompt"`
	Boundaries []string `json:"boundaries"`
}

// handleCreatePrompt returns the prompt for a segment (optionally
// per-user), creating it at version 1 when absent.
func (s *Service) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req createPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Segment == "" {
		writeError(w, http.StatusBadRequest, "segment is required")
		return
	}

	promptID := models.PromptID(req.Segment, req.UserID)
	prompt, err := s.prompts.GetOrCreatePrompt(r.Context(), promptID, req.BasePrompt, req.Boundaries)
	if errors.Is(err, store.ErrMissingBasePrompt) {
		writeError(w, http.StatusBadRequest, "basePrompt is required to create a new prompt")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("prompt_id", promptID).Msg("Failed to get or create prompt")
		writeError(w, http.StatusInternalServerError, "failed to get or create prompt")
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// handleListPrompts returns every evolving prompt.
func (s *Service) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	ids, err := s.prompts.ListPromptIDs(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list prompts")
		writeError(w, http.StatusInternalServerError, "failed to list prompts")
		return
	}

	prompts := make([]*models.EvolvingPrompt, 0, len(ids))
	for _, id := range ids {
		prompt, err := s.prompts.GetPrompt(r.Context(), id)
		if errors.Is(err, store.ErrPromptNotFound) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("prompt_id", id).Msg("Failed to load prompt")
			writeError(w, http.StatusInternalServerError, "failed to load prompts")
			return
		}
		prompts = append(prompts, prompt)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prompts": prompts})
}

// handleGetPrompt returns one prompt with its full history.
func (s *Service) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "id")
	prompt, err := s.prompts.GetPrompt(r.Context(), promptID)
	if errors.Is(err, store.ErrPromptNotFound) {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("prompt_id", promptID).Msg("Failed to load prompt")
		writeError(w, http.StatusInternalServerError, "failed to load prompt")
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// handleListAggregations returns recent feedback summaries for a prompt.
func (s *Service) handleListAggregations(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "id")

	period := models.AggregationPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = models.PeriodDay
	}
	if !period.IsValid() {
		writeError(w, http.StatusBadRequest, "period must be hour, day, week or month")
		return
	}

	limit := DefaultAggregationsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	aggs, err := s.aggs.ListAggregations(r.Context(), promptID, period, limit)
	if err != nil {
		log.Error().Err(err).Str("prompt_id", promptID).Msg("Failed to list aggregations")
		writeError(w, http.StatusInternalServerError, "failed to list aggregations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"aggregations": aggs})
}

type versionRequest struct {
	Version int `json:"version"`
}

// handleCommitProposal applies a reviewed mutation proposal to the live
// prompt. This is the only path that turns a proposal into a new
// version; the evolution cycle itself never commits.
func (s *Service) handleCommitProposal(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "id")

	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Version <= 0 {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	proposal, err := s.proposals.GetProposal(r.Context(), promptID, req.Version)
	if errors.Is(err, store.ErrProposalNotFound) {
		writeError(w, http.StatusNotFound, "proposal not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("prompt_id", promptID).Msg("Failed to load proposal")
		writeError(w, http.StatusInternalServerError, "failed to load proposal")
		return
	}

	perf := models.PromptPerformance{
		SuccessRate:       proposal.PerformanceSummary.SuccessRate,
		EditRate:          proposal.PerformanceSummary.EditRate,
		TotalInteractions: proposal.PerformanceSummary.TotalInteractions,
		LastCalculated:    time.Now().UTC(),
	}
	prompt, err := s.prompts.CommitEvolution(r.Context(), promptID, proposal.ProposedPrompt, "Approved mutation proposal", perf)
	if errors.Is(err, store.ErrPromptNotFound) {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("prompt_id", promptID).Msg("Failed to commit proposal")
		writeError(w, http.StatusInternalServerError, "failed to commit proposal")
		return
	}

	if err := s.proposals.DeleteProposal(r.Context(), promptID, req.Version); err != nil {
		log.Warn().Err(err).Str("prompt_id", promptID).Msg("Failed to delete committed proposal")
	}
	if err := s.prompts.SetCooldown(r.Context(), promptID, DefaultCooldown); err != nil {
		log.Warn().Err(err).Str("prompt_id", promptID).Msg("Failed to set post-commit cooldown")
	}

	writeJSON(w, http.StatusOK, prompt)
}

// handleRollback restores a historical version's prompt text.
func (s *Service) handleRollback(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "id")

	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Version <= 0 {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	prompt, err := s.prompts.Rollback(r.Context(), promptID, req.Version)
	if errors.Is(err, store.ErrPromptNotFound) {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if errors.Is(err, store.ErrVersionNotFound) {
		writeError(w, http.StatusNotFound, "version not found in history")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("prompt_id", promptID).Msg("Failed to roll back prompt")
		writeError(w, http.StatusInternalServerError, "failed to roll back prompt")
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

type cooldownRequest struct {
	Hours float64 `json:"hours"`
}

// handleSetCooldown excludes a prompt from automatic evolution for the
// requested number of hours (default 24).
func (s *Service) handleSetCooldown(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "id")

	var req cooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d := time.Duration(req.Hours * float64(time.Hour))
	if d <= 0 {
		d = DefaultCooldown
	}

	if err := s.prompts.SetCooldown(r.Context(), promptID, d); err != nil {
		if errors.Is(err, store.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		log.Error().Err(err).Str("prompt_id", promptID).Msg("Failed to set cooldown")
		writeError(w, http.StatusInternalServerError, "failed to set cooldown")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cooldown set"})
}

// ---------------------------------------------------------------------------
// Review surface
// ---------------------------------------------------------------------------

// handleListProposals returns pending mutation proposals, optionally
// filtered to one prompt via ?promptId=.
func (s *Service) handleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.proposals.ListProposals(r.Context(), r.URL.Query().Get("promptId"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list proposals")
		writeError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"proposals": proposals})
}

// ---------------------------------------------------------------------------
// Preference profiles
// ---------------------------------------------------------------------------

// handleGetProfile returns one user's learned preference profile.
func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	profile, err := s.profiles.GetProfile(r.Context(), userID)
	if errors.Is(err, store.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load profile")
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ---------------------------------------------------------------------------
// Manual cycle triggers
// ---------------------------------------------------------------------------

// handleRunAggregation runs one aggregation cycle for the requested
// period (default hour).
func (s *Service) handleRunAggregation(w http.ResponseWriter, r *http.Request) {
	period := models.AggregationPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = models.PeriodHour
	}
	if !period.IsValid() {
		writeError(w, http.StatusBadRequest, "period must be hour, day, week or month")
		return
	}

	count, err := s.aggregator.RunCycle(r.Context(), period)
	if err != nil {
		log.Error().Err(err).Str("period", string(period)).Msg("Aggregation cycle failed")
		writeError(w, http.StatusInternalServerError, "aggregation cycle failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":     period,
		"aggregated": count,
	})
}

// handleRunEvolution runs one evolution cycle over all prompts.
func (s *Service) handleRunEvolution(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "evolution is disabled: no generation API key configured")
		return
	}

	proposals, err := s.engine.RunEvolutionCycle(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Evolution cycle failed")
		writeError(w, http.StatusInternalServerError, "evolution cycle failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"proposals": proposals,
		"count":     len(proposals),
	})
}
