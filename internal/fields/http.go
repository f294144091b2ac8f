package fields

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPConfig configures the hosted field-extraction call.
type HTTPConfig struct {
	Model       string
	APIKey      string
	BaseURL     string // e.g. https://api.openai.com/v1
	Temperature float32
	Timeout     time.Duration
}

// HTTPExtractor asks an OpenAI-compatible vision model to read the
// receipt image and answer with label/value items. It is the live
// product's extraction path; offline dataset builds usually prefer the
// sidecar source.
type HTTPExtractor struct {
	cfg    HTTPConfig
	client *http.Client
	logger *slog.Logger
}

func NewHTTPExtractor(cfg HTTPConfig, logger *slog.Logger) *HTTPExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &HTTPExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

const systemPrompt = "You extract fields from receipt images. " +
	"Respond with ONLY a JSON array of objects, each {\"label\": string, \"value\": string}. " +
	"Use labels: Vendor, Total, Tax, Tip, Date, Payment Method, Card Number, and Item_1..Item_N for line items."

func (e *HTTPExtractor) ExtractFields(ctx context.Context, imagePath string) ([]Pair, error) {
	rid := uuid.New().String()
	start := time.Now()

	dataURI, err := encodeDataURI(imagePath)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := map[string]any{
		"model":       e.cfg.Model,
		"temperature": e.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": []map[string]any{
				{"type": "image_url", "image_url": map[string]any{"url": dataURI}},
			}},
		},
	}

	e.logger.Info("fields.extract.request",
		"req_id", rid,
		"model", e.cfg.Model,
		"path", imagePath,
	)

	raw, err := e.post(ctx, strings.TrimRight(e.cfg.BaseURL, "/")+"/chat/completions", body)
	if err != nil {
		e.logger.Error("fields.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	pairs, err := DecodePairs([]byte(strings.TrimSpace(content)))
	if err != nil {
		e.logger.Error("fields.extract.invalid_payload",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	e.logger.Info("fields.extract.ok",
		"req_id", rid,
		"pairs", len(pairs),
		"elapsed_ms", time.Since(start).Milliseconds())
	return pairs, nil
}

func (e *HTTPExtractor) post(ctx context.Context, url string, body any) ([]byte, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Warn("fields.extract.body_close_error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return raw, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, nil
}

func encodeDataURI(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
