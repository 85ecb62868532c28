package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
	"alfredoptarigan/gst-invoice-extractor/internal/logging"
)

// GeminiService returns the raw JSON text produced for a prompt.
type GeminiService interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type geminiService struct {
	client      *genai.Client
	modelName   string
	temperature float32
	maxAttempts int
	timeout     time.Duration
	limiter     *rate.Limiter
	log         logging.Logger
}

func NewGeminiService(ctx context.Context, cfg config.GeminiConfig, log logging.Logger) (GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	rpm := cfg.RPM
	if rpm <= 0 {
		rpm = 60
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &geminiService{
		client:      client,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxAttempts: attempts,
		timeout:     cfg.Timeout,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		log:         log.With("component", "gemini", "model", cfg.Model),
	}, nil
}

// GenerateJSON implements GeminiService. Rate-limited and server-side
// failures are retried up to maxAttempts; anything else returns at once.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		}
		if !isRetryableGeminiError(err) || attempt == g.maxAttempts {
			break
		}

		g.log.Warn(ctx, "gemini call failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	return "", lastErr
}

func (g *geminiService) generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temperature := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  2048,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", errors.New("no response generated (nil response)")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text content in response")
	}

	g.log.Debug(ctx, "gemini response received", "chars", len(text))
	return text, nil
}

func isRetryableGeminiError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retryableStatus(apiErrPtr.Code)
	}
	return false
}

func retryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// decodeJSONResponse parses model output into target, tolerating markdown
// fences around the object.
func decodeJSONResponse(stage, raw string, target any) error {
	if err := json.Unmarshal([]byte(extractJSON(raw)), target); err != nil {
		return &ExtractionError{
			Stage: stage,
			Raw:   raw,
			Err:   fmt.Errorf("invalid JSON response: %w", err),
		}
	}
	return nil
}

func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

var numberNoise = regexp.MustCompile(`(?i)₹|rs\.?|inr|%|,|\s`)

// llmNumber accepts JSON numbers, null, and strings such as "₹1,180.00" or
// "18%". Anything it cannot read is left unknown.
type llmNumber struct {
	Value *decimal.Decimal
}

func (n *llmNumber) UnmarshalJSON(b []byte) error {
	n.Value = nil

	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = numberNoise.ReplaceAllString(strings.Trim(s, `"`), "")
	if s == "" {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	n.Value = &d
	return nil
}

type llmInvoiceResponse struct {
	InvoiceNumber *string   `json:"invoice_number"`
	InvoiceDate   *string   `json:"invoice_date"`
	VendorName    *string   `json:"vendor_name"`
	VendorGSTIN   *string   `json:"vendor_gstin"`
	Amount        llmNumber `json:"amount"`
	GSTAmount     llmNumber `json:"gst_amount"`
	GSTRate       llmNumber `json:"gst_rate"`
}

type llmAmountsResponse struct {
	Amount    llmNumber `json:"amount"`
	GSTAmount llmNumber `json:"gst_amount"`
	GSTRate   llmNumber `json:"gst_rate"`
}
