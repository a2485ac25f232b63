package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/pantrytrack/receipt-parser/internal/llm"
)

// Client implements llm.ItemExtractor using Google Gemini.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	log    *slog.Logger
}

// NewClient creates a Gemini-backed extractor.
func NewClient(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"

	return &Client{client: client, model: model, log: logger}, nil
}

// ExtractItems sends one structured-extraction request. One attempt per
// call; llm.StructuredExtractor applies the retry budget.
func (c *Client) ExtractItems(ctx context.Context, req llm.ExtractRequest) (llm.ItemExtraction, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	schema := llm.BuildLineItemsJSONSchema()
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")
	prompt := llm.BuildSystemPrompt() + "\n\n" +
		llm.BuildUserPrompt(req) +
		"\n\nJSON Schema:\n" + string(schemaJSON)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.log.Error("llm.gemini.generate_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ItemExtraction{}, nil, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return llm.ItemExtraction{}, nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	content := []byte(llm.StripFences(responseText.String()))

	cleaned, dropped, err := llm.SanitizeExtraction(content)
	if err != nil {
		return llm.ItemExtraction{}, content, fmt.Errorf("sanitize response: %w", err)
	}
	if len(dropped) > 0 {
		c.log.Warn("llm.gemini.sanitized", "req_id", rid, "dropped", dropped)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		return llm.ItemExtraction{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.ItemExtraction
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return llm.ItemExtraction{}, cleaned, fmt.Errorf("unmarshal extraction: %w", err)
	}

	c.log.Info("llm.gemini.ok",
		"req_id", rid,
		"items", len(out.Items),
		"merchant", out.Merchant,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

// Close closes the Gemini client.
func (c *Client) Close() error {
	return c.client.Close()
}
