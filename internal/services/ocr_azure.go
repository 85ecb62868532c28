package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
	"alfredoptarigan/gst-invoice-extractor/internal/logging"
)

// azureOCRService uses the synchronous printed-text endpoint, which only
// accepts images.
type azureOCRService struct {
	client  computervision.BaseClient
	timeout time.Duration
	log     logging.Logger
}

func NewAzureOCRService(cfg config.OCRConfig, log logging.Logger) OCRService {
	client := computervision.New(cfg.AzureEndpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.AzureKey)

	return &azureOCRService{
		client:  client,
		timeout: cfg.Timeout,
		log:     log.With("component", "ocr", "provider", ProviderAzure),
	}
}

func (s *azureOCRService) Name() string { return ProviderAzure }

func (s *azureOCRService) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType == MimePDF {
		return "", &OcrError{Provider: ProviderAzure, Err: fmt.Errorf("%w: pdf is not supported by this provider", ErrUnsupportedMediaType)}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(data)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return "", &OcrError{Provider: ProviderAzure, Err: fmt.Errorf("failed to extract text: %w", err)}
	}

	text := ocrResultText(result)
	if text == "" {
		return "", &OcrError{Provider: ProviderAzure, Err: ErrEmptyOCRText}
	}

	s.log.Debug(ctx, "ocr completed", "chars", len(text))
	return text, nil
}

// ocrResultText flattens regions and lines into newline separated text.
func ocrResultText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}

	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			if l := strings.TrimSpace(strings.Join(words, " ")); l != "" {
				lines = append(lines, l)
			}
		}
	}
	return strings.Join(lines, "\n")
}
