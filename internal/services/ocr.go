package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
	"alfredoptarigan/gst-invoice-extractor/internal/logging"
)

const (
	ProviderOCRSpace = "ocrspace"
	ProviderAzure    = "azure"
)

// OCRService turns an image or PDF into plain text. Implementations return
// *OcrError for every failure, including empty output.
type OCRService interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
	Name() string
}

// NewOCRService picks the provider named by OCR_PROVIDER.
func NewOCRService(cfg config.OCRConfig, log logging.Logger) (OCRService, error) {
	switch cfg.Provider {
	case ProviderOCRSpace:
		return NewOCRSpaceService(cfg, log), nil
	case ProviderAzure:
		return NewAzureOCRService(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s (supported: %s, %s)", cfg.Provider, ProviderOCRSpace, ProviderAzure)
	}
}

type ocrSpaceService struct {
	apiKey   string
	url      string
	language string
	client   *http.Client
	log      logging.Logger
}

func NewOCRSpaceService(cfg config.OCRConfig, log logging.Logger) OCRService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	language := cfg.Language
	if language == "" {
		language = "eng"
	}

	return &ocrSpaceService{
		apiKey:   cfg.APIKey,
		url:      cfg.URL,
		language: language,
		client:   &http.Client{Timeout: timeout},
		log:      log.With("component", "ocr", "provider", ProviderOCRSpace),
	}
}

func (s *ocrSpaceService) Name() string { return ProviderOCRSpace }

type ocrSpaceParsedResult struct {
	ParsedText        string `json:"ParsedText"`
	FileParseExitCode int    `json:"FileParseExitCode"`
	ErrorMessage      string `json:"ErrorMessage"`
}

type ocrSpaceResponse struct {
	ParsedResults         []ocrSpaceParsedResult `json:"ParsedResults"`
	OCRExitCode           int                    `json:"OCRExitCode"`
	IsErroredOnProcessing bool                   `json:"IsErroredOnProcessing"`
	// A string or a list of strings depending on the failure.
	ErrorMessage json.RawMessage `json:"ErrorMessage"`
}

func (r *ocrSpaceResponse) errorText() string {
	if len(r.ErrorMessage) == 0 || string(r.ErrorMessage) == "null" {
		return "unknown error"
	}
	var list []string
	if err := json.Unmarshal(r.ErrorMessage, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var single string
	if err := json.Unmarshal(r.ErrorMessage, &single); err == nil {
		return single
	}
	return string(r.ErrorMessage)
}

func (s *ocrSpaceService) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	body, contentType, err := s.buildForm(data, mimeType)
	if err != nil {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 200))}
	}

	var parsed ocrSpaceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if parsed.IsErroredOnProcessing {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: fmt.Errorf("processing error: %s", parsed.errorText())}
	}

	pages := make([]string, 0, len(parsed.ParsedResults))
	for _, r := range parsed.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			pages = append(pages, t)
		}
	}
	text := strings.Join(pages, "\n")
	if text == "" {
		return "", &OcrError{Provider: ProviderOCRSpace, Err: ErrEmptyOCRText}
	}

	s.log.Debug(ctx, "ocr completed", "pages", len(pages), "chars", len(text), "duration", time.Since(start))
	return text, nil
}

func (s *ocrSpaceService) buildForm(data []byte, mimeType string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"apikey", s.apiKey},
		{"language", s.language},
		{"isTable", "true"},
		{"detectOrientation", "true"},
		{"scale", "true"},
		{"OCREngine", "2"},
		{"filetype", ocrSpaceFileType(mimeType)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}

	part, err := w.CreateFormFile("file", "invoice"+extensionFor(mimeType))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func ocrSpaceFileType(mimeType string) string {
	switch mimeType {
	case MimePDF:
		return "PDF"
	case MimePNG:
		return "PNG"
	case MimeWEBP:
		return "WEBP"
	default:
		return "JPG"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
