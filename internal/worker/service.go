// Package worker provides the evolvd HTTP service: feedback ingestion,
// the review API over prompts and proposals, and the scheduled
// aggregation and evolution cycles.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/sitelore/evolvd/internal/config"
	"github.com/sitelore/evolvd/internal/evolution"
	"github.com/sitelore/evolvd/internal/feedback"
	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/internal/llm"
	"github.com/sitelore/evolvd/internal/notify"
	"github.com/sitelore/evolvd/internal/store"
	"github.com/sitelore/evolvd/pkg/models"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultCooldown is applied after a commit so a freshly revised
	// prompt gathers feedback before the next automatic mutation.
	DefaultCooldown = 24 * time.Hour
)

// Service is the main evolvd service orchestrator.
type Service struct {
	// Version of the evolvd binary
	version string

	// Configuration
	config *config.Config

	// Storage
	backend   kv.Store
	prompts   *store.PromptStore
	aggs      *store.AggregationStore
	profiles  *store.ProfileStore
	proposals *store.ProposalStore
	events    *store.EventStore

	// Domain services
	aggregator *feedback.Aggregator
	engine     *evolution.Engine

	// HTTP server and scheduler
	router    *chi.Mux
	server    *http.Server
	scheduler *cron.Cron
	startTime time.Time

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a fully wired service. The generation client is
// optional: without an API key the evolution cycle is disabled and the
// review API still works.
func NewService(version string, cfg *config.Config) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())

	backend := kv.NewRedisStore(cfg.Redis)
	logger := log.Logger

	prompts := store.NewPromptStore(backend, logger)
	aggs := store.NewAggregationStore(backend, logger)
	profiles := store.NewProfileStore(backend, logger)
	proposals := store.NewProposalStore(backend, logger)
	events := store.NewEventStore(backend, logger)

	aggregator := feedback.NewAggregator(events, aggs, prompts, profiles, cfg.Lexicon, logger)

	var engine *evolution.Engine
	if cfg.Generation.APIKey != "" {
		generator, err := llm.NewClient(cfg.Generation)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("init generation client: %w", err)
		}
		notifier := notify.New(cfg.Notify, logger)
		engine = evolution.NewEngine(cfg.Evolution, prompts, aggs, proposals, generator, notifier, logger)
	} else {
		log.Warn().Msg("No generation API key configured - evolution cycle disabled")
	}

	svc := &Service{
		version:    version,
		config:     cfg,
		backend:    backend,
		prompts:    prompts,
		aggs:       aggs,
		profiles:   profiles,
		proposals:  proposals,
		events:     events,
		aggregator: aggregator,
		engine:     engine,
		router:     chi.NewRouter(),
		ctx:        ctx,
		cancel:     cancel,
		startTime:  time.Now(),
	}

	svc.setupMiddleware()
	svc.setupRoutes()
	svc.setupSchedules()

	return svc, nil
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(middleware.RealIP)
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/version", s.handleVersion)

	// Routes below require the shared secret when one is configured.
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireSecret)

		// Feedback ingestion
		r.Post("/api/feedback", s.handleRecordFeedback)

		// Evolving prompts
		r.Get("/api/prompts", s.handleListPrompts)
		r.Post("/api/prompts", s.handleCreatePrompt)
		r.Get("/api/prompts/{id}", s.handleGetPrompt)
		r.Get("/api/prompts/{id}/aggregations", s.handleListAggregations)
		r.Post("/api/prompts/{id}/commit", s.handleCommitProposal)
		r.Post("/api/prompts/{id}/rollback", s.handleRollback)
		r.Post("/api/prompts/{id}/cooldown", s.handleSetCooldown)

		// Review surface
		r.Get("/api/proposals", s.handleListProposals)

		// Preference profiles
		r.Get("/api/profiles/{userId}", s.handleGetProfile)

		// Manual cycle triggers
		r.Post("/api/cycles/aggregate", s.handleRunAggregation)
		r.Post("/api/cycles/evolve", s.handleRunEvolution)
	})
}

// setupSchedules registers the periodic aggregation and evolution jobs.
func (s *Service) setupSchedules() {
	s.scheduler = cron.New(cron.WithLocation(time.UTC))

	// Aggregation is idempotent per window, so every tick refreshes all
	// four bucket sizes for the windows containing now.
	if _, err := s.scheduler.AddFunc(s.config.AggregationSpec, func() {
		for _, period := range models.Periods {
			if _, err := s.aggregator.RunCycle(s.ctx, period); err != nil {
				log.Error().Err(err).Str("period", string(period)).Msg("Scheduled aggregation cycle failed")
			}
		}
	}); err != nil {
		log.Error().Err(err).Str("spec", s.config.AggregationSpec).Msg("Invalid aggregation schedule")
	}

	if _, err := s.scheduler.AddFunc(s.config.EvolutionSpec, func() {
		if s.engine == nil {
			return
		}
		if _, err := s.engine.RunEvolutionCycle(s.ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled evolution cycle failed")
		}
	}); err != nil {
		log.Error().Err(err).Str("spec", s.config.EvolutionSpec).Msg("Invalid evolution schedule")
	}
}

// Start starts the HTTP server and the scheduler.
func (s *Service) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	log.Info().
		Int("port", s.config.Port).
		Bool("evolution_enabled", s.engine != nil).
		Msg("Evolvd HTTP server started")
	return nil
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	if err := s.backend.Close(); err != nil {
		log.Error().Err(err).Msg("Store close error")
	}

	s.wg.Wait()

	log.Info().Msg("Evolvd service shutdown complete")
	return nil
}
