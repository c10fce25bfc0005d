package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pourprice/server/config"
	"pourprice/server/internal/benchmark"
	"pourprice/server/internal/costs"
	"pourprice/server/internal/database"
	"pourprice/server/internal/demand"
	"pourprice/server/internal/engine"
	"pourprice/server/internal/geometry"
	"pourprice/server/internal/optimizer"
)

var rootCmd = &cobra.Command{
	Use:   "pourprice",
	Short: "Bottle price recommendations for nightlife venues",
	Long: `pourprice serves price recommendations for bottle menus, combining
market benchmarks computed from competitor price records with an optional
demand model for profit-aware optimization.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; the environment still applies.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(datagenCmd)
	rootCmd.AddCommand(recommendCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	return logger
}

// buildPricing assembles the benchmark store, cost model, demand predictor
// and recommendation engine from the configuration. The predictor is nil
// when no trained model artifact is configured.
func buildPricing(cfg *config.Config, store *database.Store, logger *logrus.Logger) (*benchmark.Store, *engine.Engine, demand.Predictor, error) {
	benchmarks := benchmark.NewStore(benchmark.NewComputer(logger), store, logger)

	if cfg.Engine.MarketAreasPath != "" && cfg.Engine.MarketArea != "" {
		areas, err := geometry.LoadAreas(cfg.Engine.MarketAreasPath, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load market areas: %w", err)
		}
		venues, err := store.GetVenues()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load venues: %w", err)
		}
		scoped := areas.VenuesIn(cfg.Engine.MarketArea, venues)
		if len(scoped) == 0 {
			logger.WithField("area", cfg.Engine.MarketArea).Warn("No venues located inside the configured market area")
		}
		benchmarks.SetVenueScope(scoped)
		logger.WithFields(logrus.Fields{
			"area":   cfg.Engine.MarketArea,
			"venues": len(scoped),
		}).Info("Benchmarks scoped to market area")
	}

	costModel := costs.Default()
	if cfg.Engine.CostConfigPath != "" {
		loaded, err := costs.Load(cfg.Engine.CostConfigPath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		costModel = loaded
	}

	var predictor demand.Predictor
	var opt *optimizer.Optimizer
	if cfg.Engine.DemandModelPath != "" {
		regressor := demand.NewRegressor(logger)
		if err := regressor.Load(cfg.Engine.DemandModelPath); err != nil {
			logger.WithError(err).Warn("Failed to load demand model, serving benchmark-only recommendations")
		} else {
			predictor = regressor
			opt = optimizer.New(regressor, costModel, cfg.Engine.OptimizerWorkers, logger)
		}
	}

	eng := engine.New(benchmarks, opt, costModel, engine.Config{
		GuardrailPct: cfg.Engine.GuardrailPct,
		RoundingUnit: cfg.Engine.RoundingUnit,
		PriceFloor:   cfg.Engine.PriceFloor,
	}, logger)

	return benchmarks, eng, predictor, nil
}
