package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"pourprice/server/config"
	"pourprice/server/internal/api"
	"pourprice/server/internal/database"
	"pourprice/server/internal/processor"
	"pourprice/server/internal/queue"
	"pourprice/server/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		store, err := database.Open(cfg.Server.DatabasePath, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		benchmarks, eng, predictor, err := buildPricing(cfg, store, logger)
		if err != nil {
			return err
		}

		// Ingestion pipeline: records queue into batches and land in
		// the store through the retrying batch processor.
		recordQueue := queue.NewRecordQueue(cfg.BatchProcessing.MaxBatchSize*cfg.BatchProcessing.ProcessorCount, logger)
		batchProcessor := processor.NewBatchProcessor(store.DB(), recordQueue, cfg, logger)
		batchProcessor.Start()
		recordQueue.Start()
		defer func() {
			recordQueue.Close()
			batchProcessor.Stop()
		}()

		sched := scheduler.NewScheduler(benchmarks, time.Duration(cfg.Scheduler.RecomputeIntervalMinutes)*time.Minute, logger)
		sched.Start()
		defer sched.Stop()

		router := gin.New()
		router.Use(gin.Recovery())
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.Server.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		}))
		api.SetupRoutes(router, api.NewHandler(store, benchmarks, eng, predictor, recordQueue, sched, logger))

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		go func() {
			logger.WithField("port", cfg.Server.Port).Info("Starting server")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("Server failed to start")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("forced server shutdown: %w", err)
		}
		return nil
	},
}
