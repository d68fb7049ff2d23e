// Package main provides the entry point for the evolvd service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sitelore/evolvd/internal/config"
	"github.com/sitelore/evolvd/internal/evolution"
	"github.com/sitelore/evolvd/internal/feedback"
	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/internal/llm"
	"github.com/sitelore/evolvd/internal/notify"
	"github.com/sitelore/evolvd/internal/store"
	"github.com/sitelore/evolvd/internal/worker"
	"github.com/sitelore/evolvd/pkg/models"
)

var Version = "dev"

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "evolvd",
		Short: "Prompt evolution service for the Sitelore assistant",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.evolvd/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(serveCmd(), aggregateCmd(), evolveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// serveCmd runs the HTTP service with the in-process scheduler.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the evolvd HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log.Info().Str("version", Version).Msg("Starting evolvd")

			svc, err := worker.NewService(Version, cfg)
			if err != nil {
				return fmt.Errorf("create service: %w", err)
			}
			if err := svc.Start(); err != nil {
				return fmt.Errorf("start service: %w", err)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("Received shutdown signal")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return svc.Shutdown(ctx)
		},
	}
}

// aggregateCmd runs one aggregation cycle and exits. Useful for
// external schedulers and backfills.
func aggregateCmd() *cobra.Command {
	var periodFlag string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run one feedback aggregation cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			period := models.AggregationPeriod(periodFlag)
			if !period.IsValid() {
				return fmt.Errorf("invalid period %q: must be hour, day, week or month", periodFlag)
			}

			backend := kv.NewRedisStore(cfg.Redis)
			defer backend.Close()

			aggregator := feedback.NewAggregator(
				store.NewEventStore(backend, log.Logger),
				store.NewAggregationStore(backend, log.Logger),
				store.NewPromptStore(backend, log.Logger),
				store.NewProfileStore(backend, log.Logger),
				cfg.Lexicon,
				log.Logger,
			)

			count, err := aggregator.RunCycle(cmd.Context(), period)
			if err != nil {
				return fmt.Errorf("aggregation cycle: %w", err)
			}
			log.Info().Str("period", periodFlag).Int("aggregated", count).Msg("Aggregation cycle complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&periodFlag, "period", "hour", "aggregation period: hour, day, week or month")
	return cmd
}

// evolveCmd runs one evolution cycle and exits.
func evolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evolve",
		Short: "Run one prompt evolution cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Generation.APIKey == "" {
				return fmt.Errorf("evolution requires a generation API key (EVOLVD_GENERATION_API_KEY)")
			}

			generator, err := llm.NewClient(cfg.Generation)
			if err != nil {
				return fmt.Errorf("init generation client: %w", err)
			}

			backend := kv.NewRedisStore(cfg.Redis)
			defer backend.Close()

			engine := evolution.NewEngine(
				cfg.Evolution,
				store.NewPromptStore(backend, log.Logger),
				store.NewAggregationStore(backend, log.Logger),
				store.NewProposalStore(backend, log.Logger),
				generator,
				notify.New(cfg.Notify, log.Logger),
				log.Logger,
			)

			proposals, err := engine.RunEvolutionCycle(cmd.Context())
			if err != nil {
				return fmt.Errorf("evolution cycle: %w", err)
			}
			log.Info().Int("proposals", len(proposals)).Msg("Evolution cycle complete")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the evolvd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}
