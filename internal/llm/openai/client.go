package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pantrytrack/receipt-parser/internal/llm"
)

// ExtractItems implements llm.ItemExtractor using text-only chat/completions
// with a JSON-object response format. One attempt per call; the retry loop
// lives in llm.StructuredExtractor.
func (c *Client) ExtractItems(ctx context.Context, req llm.ExtractRequest) (llm.ItemExtraction, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.openai.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.OCRText),
		"corrective", req.CorrectiveNote != "",
	)

	schema := llm.BuildLineItemsJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.openai.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ItemExtraction{}, nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.ItemExtraction{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return llm.ItemExtraction{}, raw, fmt.Errorf("no choices in openai response")
	}
	content := []byte(llm.StripFences(cc.Choices[0].Message.Content))

	cleaned, dropped, err := llm.SanitizeExtraction(content)
	if err != nil {
		return llm.ItemExtraction{}, content, fmt.Errorf("sanitize response: %w", err)
	}
	if len(dropped) > 0 {
		c.log.Warn("llm.openai.sanitized", "req_id", rid, "dropped", dropped)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.openai.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(cleaned),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ItemExtraction{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.ItemExtraction
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return llm.ItemExtraction{}, cleaned, fmt.Errorf("unmarshal extraction: %w", err)
	}

	c.log.Info("llm.openai.ok",
		"req_id", rid,
		"items", len(out.Items),
		"merchant", out.Merchant,
		"total", out.Total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
