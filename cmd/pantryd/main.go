package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/pantrytrack/receipt-parser/internal/common"
	"github.com/pantrytrack/receipt-parser/internal/export"
	"github.com/pantrytrack/receipt-parser/internal/llm"
	"github.com/pantrytrack/receipt-parser/internal/llm/gemini"
	"github.com/pantrytrack/receipt-parser/internal/llm/openai"
	"github.com/pantrytrack/receipt-parser/internal/normalize"
	"github.com/pantrytrack/receipt-parser/internal/pipeline"
	"github.com/pantrytrack/receipt-parser/internal/repository"
	"github.com/pantrytrack/receipt-parser/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("pantryd")
	var (
		addr       = fs.StringLong("addr", cfg.Server.HTTPAddr, "HTTP listen address")
		dbURL      = fs.StringLong("db-url", cfg.Database.DSN, "Postgres connection string (empty disables persistence)")
		provider   = fs.StringLong("llm-provider", cfg.LLM.Provider, "Extraction backend: 'openai', 'gemini', or empty to disable")
		model      = fs.StringLong("llm-model", cfg.LLM.Model, "Model name for the extraction backend")
		apiKey     = fs.StringLong("llm-api-key", cfg.LLM.APIKey, "API key for the extraction backend")
		refdataDir = fs.StringLong("refdata-dir", cfg.RefData.Dir, "Reference data directory (empty uses embedded data)")
	)
	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PANTRYD"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}

	cfg.Server.HTTPAddr = *addr
	cfg.Database.DSN = *dbURL
	cfg.LLM.Provider = *provider
	cfg.LLM.Model = *model
	cfg.LLM.APIKey = *apiKey
	cfg.RefData.Dir = *refdataDir
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refData, err := normalize.LoadRefData(cfg.RefData.Dir)
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}
	normalizer := normalize.New(refData, cfg.Pipeline.FuzzyMatchThreshold, logger)

	var extractor llm.ItemExtractor
	switch cfg.LLM.Provider {
	case "openai":
		client := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		extractor = llm.NewStructuredExtractor(client, cfg.Pipeline.RetryBudget, cfg.Pipeline.SubtotalToleranceCents, logger)
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, logger)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		defer client.Close()
		extractor = llm.NewStructuredExtractor(client, cfg.Pipeline.RetryBudget, cfg.Pipeline.SubtotalToleranceCents, logger)
	case "":
		logger.Info("llm.disabled", "reason", "no provider configured")
	default:
		return fmt.Errorf("unknown LLM provider %q, expected 'openai' or 'gemini'", cfg.LLM.Provider)
	}

	parser := pipeline.NewParser(pipeline.Config{
		EscalationThreshold:    cfg.Pipeline.EscalationThreshold,
		RetryBudget:            cfg.Pipeline.RetryBudget,
		FuzzyMatchThreshold:    cfg.Pipeline.FuzzyMatchThreshold,
		SubtotalToleranceCents: cfg.Pipeline.SubtotalToleranceCents,
	}, normalizer, extractor, logger)

	var (
		store    repository.ParseStore
		exporter *export.Service
	)
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer pool.Close()
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		store = repository.NewParseStore(pool, logger)
		exporter = export.NewService(store, logger)
	} else {
		logger.Info("persistence.disabled", "reason", "no DB_URL configured")
	}

	srv := server.New(cfg.Server.HTTPAddr, parser, store, exporter, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server.shutdown.start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server.shutdown.done")
	return nil
}
