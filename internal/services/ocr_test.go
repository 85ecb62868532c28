package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
	"alfredoptarigan/gst-invoice-extractor/internal/logging"
)

func newOCRSpaceTestService(t *testing.T, handler http.HandlerFunc) OCRService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOCRSpaceService(config.OCRConfig{
		APIKey:  "test-key",
		URL:     srv.URL,
		Timeout: 5 * time.Second,
	}, logging.Nop())
}

func TestOCRSpace_JoinsPagesAndSendsForm(t *testing.T) {
	svc := newOCRSpaceTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		assert.Equal(t, "eng", r.FormValue("language"))
		assert.Equal(t, "2", r.FormValue("OCREngine"))
		assert.Equal(t, "PDF", r.FormValue("filetype"))

		f, fh, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		assert.Equal(t, "invoice.pdf", fh.Filename)
		body, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-data", string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ParsedResults":[{"ParsedText":" Page one \r\n"},{"ParsedText":""},{"ParsedText":"Page two"}],
			"OCRExitCode":1,"IsErroredOnProcessing":false}`)
	})

	text, err := svc.ExtractText(context.Background(), []byte("%PDF-data"), MimePDF)
	require.NoError(t, err)
	assert.Equal(t, "Page one\nPage two", text)
}

func TestOCRSpace_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		wantErr error
	}{
		{
			name:    "processing error list",
			status:  http.StatusOK,
			body:    `{"IsErroredOnProcessing":true,"ErrorMessage":["File failed validation","Unable to recognize the file type"]}`,
			wantMsg: "File failed validation; Unable to recognize the file type",
		},
		{
			name:    "processing error string",
			status:  http.StatusOK,
			body:    `{"IsErroredOnProcessing":true,"ErrorMessage":"Timed out waiting for results"}`,
			wantMsg: "Timed out waiting for results",
		},
		{
			name:    "empty text",
			status:  http.StatusOK,
			body:    `{"ParsedResults":[{"ParsedText":"   "}],"IsErroredOnProcessing":false}`,
			wantErr: ErrEmptyOCRText,
		},
		{
			name:    "http status",
			status:  http.StatusForbidden,
			body:    `The API key is invalid`,
			wantMsg: "unexpected status 403",
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantMsg: "failed to parse response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newOCRSpaceTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := svc.ExtractText(context.Background(), []byte("img"), MimeJPEG)
			require.Error(t, err)

			var ocrErr *OcrError
			require.True(t, errors.As(err, &ocrErr))
			assert.Equal(t, ProviderOCRSpace, ocrErr.Provider)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestOCRSpace_ContextCancelled(t *testing.T) {
	svc := newOCRSpaceTestService(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ExtractText(ctx, []byte("img"), MimePNG)
	var ocrErr *OcrError
	require.True(t, errors.As(err, &ocrErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewOCRService(t *testing.T) {
	svc, err := NewOCRService(config.OCRConfig{Provider: ProviderOCRSpace}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, ProviderOCRSpace, svc.Name())

	svc, err = NewOCRService(config.OCRConfig{Provider: ProviderAzure, AzureEndpoint: "https://example.cognitiveservices.azure.com"}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, ProviderAzure, svc.Name())

	_, err = NewOCRService(config.OCRConfig{Provider: "tesseract"}, logging.Nop())
	assert.Error(t, err)
}

func TestAzureOCR_RejectsPDF(t *testing.T) {
	svc := NewAzureOCRService(config.OCRConfig{AzureEndpoint: "https://example.cognitiveservices.azure.com"}, logging.Nop())

	_, err := svc.ExtractText(context.Background(), []byte("%PDF-1.4"), MimePDF)
	var ocrErr *OcrError
	require.True(t, errors.As(err, &ocrErr))
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestOCRResultText(t *testing.T) {
	str := func(s string) *string { return &s }
	words := func(ws ...string) *[]computervision.OcrWord {
		out := make([]computervision.OcrWord, 0, len(ws))
		for _, w := range ws {
			out = append(out, computervision.OcrWord{Text: str(w)})
		}
		return &out
	}

	result := computervision.OcrResult{
		Regions: &[]computervision.OcrRegion{
			{Lines: &[]computervision.OcrLine{
				{Words: words("TAX", "INVOICE")},
				{Words: words("Invoice", "No:", "ABC/123")},
			}},
			{Lines: nil},
			{Lines: &[]computervision.OcrLine{
				{Words: words()},
				{Words: words("Total", "1,180.00")},
			}},
		},
	}

	assert.Equal(t, "TAX INVOICE\nInvoice No: ABC/123\nTotal 1,180.00", ocrResultText(result))
	assert.Equal(t, "", ocrResultText(computervision.OcrResult{}))
}
