package worker

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/sitelore/evolvd/internal/config"
	"github.com/sitelore/evolvd/internal/feedback"
	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/internal/store"
	"github.com/sitelore/evolvd/pkg/models"
)

// newTestService wires a service over an in-memory store, without the
// scheduler or an evolution engine.
func newTestService(secret string) *Service {
	backend := kv.NewMemoryStore()
	logger := zerolog.Nop()

	cfg := config.Default()
	cfg.SharedSecret = secret

	prompts := store.NewPromptStore(backend, logger)
	aggs := store.NewAggregationStore(backend, logger)
	profiles := store.NewProfileStore(backend, logger)
	proposals := store.NewProposalStore(backend, logger)
	events := store.NewEventStore(backend, logger)

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		version:    "test",
		config:     cfg,
		backend:    backend,
		prompts:    prompts,
		aggs:       aggs,
		profiles:   profiles,
		proposals:  proposals,
		events:     events,
		aggregator: feedback.NewAggregator(events, aggs, prompts, profiles, cfg.Lexicon, logger),
		router:     chi.NewRouter(),
		ctx:        ctx,
		cancel:     cancel,
		startTime:  time.Now(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}

// HandlersSuite is a test suite for the HTTP API.
type HandlersSuite struct {
	suite.Suite
	svc *Service
}

func (s *HandlersSuite) SetupTest() {
	s.svc = newTestService("")
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.svc.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersSuite) decode(rec *httptest.ResponseRecorder, into interface{}) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(into))
}

// =============================================================================
// HEALTH
// =============================================================================

func (s *HandlersSuite) TestHealth() {
	rec := s.request(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)

	var body map[string]interface{}
	s.decode(rec, &body)
	s.Equal("ok", body["status"])
	s.Equal("test", body["version"])
}

// =============================================================================
// FEEDBACK INGESTION
// =============================================================================

func (s *HandlersSuite) TestRecordFeedback() {
	rec := s.request(http.MethodPost, "/api/feedback", map[string]string{
		"promptId": "general",
		"userId":   "user-1",
		"type":     "positive",
	})
	s.Equal(http.StatusCreated, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.NotEmpty(body["id"])

	now := time.Now().UTC()
	events, err := s.svc.events.ListEvents(context.Background(), "general", now.Add(-time.Minute), now.Add(time.Minute))
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *HandlersSuite) TestRecordFeedback_RejectsUnknownType() {
	rec := s.request(http.MethodPost, "/api/feedback", map[string]string{
		"promptId": "general",
		"type":     "thumbs_up",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PROMPTS
// =============================================================================

func (s *HandlersSuite) TestCreateAndGetPrompt() {
	rec := s.request(http.MethodPost, "/api/prompts", map[string]interface{}{
		"segment":    "general",
		"userId":     "user-1",
		"basePrompt": "Be helpful.",
		"boundaries": []string{"never invent prices"},
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var created models.EvolvingPrompt
	s.decode(rec, &created)
	s.Equal("general:user-1", created.ID)
	s.Equal(1, created.Version)

	rec = s.request(http.MethodGet, "/api/prompts/general:user-1", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlersSuite) TestCreatePrompt_RequiresBaseForNew() {
	rec := s.request(http.MethodPost, "/api/prompts", map[string]string{"segment": "general"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestGetPrompt_NotFound() {
	rec := s.request(http.MethodGet, "/api/prompts/missing", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

// =============================================================================
// PROPOSAL REVIEW FLOW
// =============================================================================

func (s *HandlersSuite) TestCommitProposal() {
	ctx := context.Background()
	_, err := s.svc.prompts.GetOrCreatePrompt(ctx, "general", "v1 text", nil)
	s.Require().NoError(err)
	s.Require().NoError(s.svc.proposals.StoreProposal(ctx, &models.MutationProposal{
		PromptID:        "general",
		OriginalVersion: 1,
		NewVersion:      2,
		OriginalPrompt:  "v1 text",
		ProposedPrompt:  "v2 text",
		ProposedAt:      time.Now().UTC(),
	}))

	rec := s.request(http.MethodPost, "/api/prompts/general/commit", map[string]int{"version": 2})
	s.Require().Equal(http.StatusOK, rec.Code)

	var prompt models.EvolvingPrompt
	s.decode(rec, &prompt)
	s.Equal(2, prompt.Version)
	s.Equal("v2 text", prompt.CurrentPrompt)

	// The committed proposal leaves the review queue and a cooldown
	// protects the fresh version.
	_, err = s.svc.proposals.GetProposal(ctx, "general", 2)
	s.ErrorIs(err, store.ErrProposalNotFound)

	cooling, err := s.svc.prompts.InCooldown(ctx, "general")
	s.Require().NoError(err)
	s.True(cooling)
}

func (s *HandlersSuite) TestCommitProposal_UnknownProposal() {
	ctx := context.Background()
	_, err := s.svc.prompts.GetOrCreatePrompt(ctx, "general", "v1 text", nil)
	s.Require().NoError(err)

	rec := s.request(http.MethodPost, "/api/prompts/general/commit", map[string]int{"version": 9})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlersSuite) TestRollback() {
	ctx := context.Background()
	_, err := s.svc.prompts.GetOrCreatePrompt(ctx, "general", "v1 text", nil)
	s.Require().NoError(err)
	_, err = s.svc.prompts.CommitEvolution(ctx, "general", "v2 text", "tuning", models.PromptPerformance{})
	s.Require().NoError(err)

	rec := s.request(http.MethodPost, "/api/prompts/general/rollback", map[string]int{"version": 1})
	s.Require().Equal(http.StatusOK, rec.Code)

	var prompt models.EvolvingPrompt
	s.decode(rec, &prompt)
	s.Equal(3, prompt.Version)
	s.Equal("v1 text", prompt.CurrentPrompt)
}

// =============================================================================
// CYCLES
// =============================================================================

func (s *HandlersSuite) TestRunAggregationCycle() {
	ctx := context.Background()
	_, err := s.svc.prompts.GetOrCreatePrompt(ctx, "general", "base", nil)
	s.Require().NoError(err)

	event := models.NewFeedbackEvent("general", "user-1", models.FeedbackPositive)
	s.Require().NoError(s.svc.events.RecordEvent(ctx, event))

	rec := s.request(http.MethodPost, "/api/cycles/aggregate?period=hour", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]interface{}
	s.decode(rec, &body)
	s.Equal(float64(1), body["aggregated"])
}

func (s *HandlersSuite) TestRunAggregationCycle_RejectsBadPeriod() {
	rec := s.request(http.MethodPost, "/api/cycles/aggregate?period=fortnight", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestRunEvolutionCycle_DisabledWithoutGenerator() {
	rec := s.request(http.MethodPost, "/api/cycles/evolve", nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

// =============================================================================
// PROFILES
// =============================================================================

func (s *HandlersSuite) TestGetProfile() {
	ctx := context.Background()
	_, err := s.svc.profiles.GetOrCreateProfile(ctx, "user-1")
	s.Require().NoError(err)

	rec := s.request(http.MethodGet, "/api/profiles/user-1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var profile models.UserPreferenceProfile
	s.decode(rec, &profile)
	s.Equal("user-1", profile.UserID)

	rec = s.request(http.MethodGet, "/api/profiles/unknown", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}
