package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"bolso/internal/amqp"
	"bolso/internal/cli"
	apphttp "bolso/internal/http"
	"bolso/internal/parser"
	"bolso/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting bolso server")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Seed the allocation settings singleton for the configured user.
	if err := repo.EnsureDefaults(context.Background(), cfg.UserID); err != nil {
		logger.Error("Failed to seed default settings", "error", err)
		os.Exit(1)
	}

	// AMQP is optional; without it transactions stay local-only.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPDeleteQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, spreadsheet mirroring disabled", "error", err)
			amqpClient = nil
		} else {
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	}

	// The parser is optional too; without it only manual entry works.
	var txParser parser.TransactionParser
	if cfg.LLMAPIKey != "" {
		txParser = parser.NewOpenAIParser(parser.Options{
			BaseURL:         cfg.LLMBaseURL,
			APIKey:          cfg.LLMAPIKey,
			Model:           cfg.LLMModel,
			TranscribeModel: cfg.LLMTranscribeModel,
			Timeout:         cfg.LLMTimeout,
		}, nil)
		logger.Info("Language-model parser initialized", "model", cfg.LLMModel)
	} else {
		logger.Info("Language-model parser disabled - no LLM_API_KEY provided")
	}

	hub := services.NewHub()
	service := services.NewTransactionService(repo, amqpClient, hub, cfg.UserID)

	srv := apphttp.NewServer(":"+cfg.Port, service, txParser, hub)
	srv.ReadTimeout = 10 * time.Second
	// No WriteTimeout: /api/transactions/stream holds the connection open.
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := service.Close(); err != nil {
			logger.Error("Service close error", "error", err)
		}
	})

	logger.Info("Starting HTTP server", "port", cfg.Port, "user_id", cfg.UserID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
