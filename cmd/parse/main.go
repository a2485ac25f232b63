package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pantrytrack/receipt-parser/internal/common"
	"github.com/pantrytrack/receipt-parser/internal/llm"
	"github.com/pantrytrack/receipt-parser/internal/llm/gemini"
	"github.com/pantrytrack/receipt-parser/internal/llm/openai"
	"github.com/pantrytrack/receipt-parser/internal/normalize"
	"github.com/pantrytrack/receipt-parser/internal/pipeline"
)

// parse runs the pipeline once over a text file of OCR output and prints
// the result as JSON. Meant for spot-checking receipts from the shell.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: parse <ocr-text-file> [merchant-hint]")
		os.Exit(2)
	}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read input", "path", os.Args[1], "error", err)
		os.Exit(1)
	}
	merchantHint := ""
	if len(os.Args) >= 3 {
		merchantHint = os.Args[2]
	}

	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	refData, err := normalize.LoadRefData(cfg.RefData.Dir)
	if err != nil {
		logger.Error("load reference data", "error", err)
		os.Exit(1)
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
			logger.Error("init gemini", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		extractor = llm.NewStructuredExtractor(client, cfg.Pipeline.RetryBudget, cfg.Pipeline.SubtotalToleranceCents, logger)
	}

	parser := pipeline.NewParser(pipeline.Config{
		EscalationThreshold:    cfg.Pipeline.EscalationThreshold,
		RetryBudget:            cfg.Pipeline.RetryBudget,
		FuzzyMatchThreshold:    cfg.Pipeline.FuzzyMatchThreshold,
		SubtotalToleranceCents: cfg.Pipeline.SubtotalToleranceCents,
	}, normalizer, extractor, logger)

	res := parser.Parse(ctx, string(raw), merchantHint)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	if !res.Success {
		os.Exit(1)
	}
}
