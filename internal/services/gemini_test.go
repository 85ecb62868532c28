package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestDecodeJSONResponse(t *testing.T) {
	var resp llmInvoiceResponse
	raw := "```json\n{\"invoice_number\":\"ABC/123\",\"amount\":\"₹1,180.00\",\"gst_amount\":180,\"gst_rate\":\"18%\"}\n```"

	require.NoError(t, decodeJSONResponse(StagePrimary, raw, &resp))
	require.NotNil(t, resp.InvoiceNumber)
	assert.Equal(t, "ABC/123", *resp.InvoiceNumber)
	assert.Equal(t, "1180", resp.Amount.Value.String())
	assert.Equal(t, "180", resp.GSTAmount.Value.String())
	assert.Equal(t, "18", resp.GSTRate.Value.String())
	assert.Nil(t, resp.VendorName)
}

func TestDecodeJSONResponse_Invalid(t *testing.T) {
	var resp llmInvoiceResponse
	err := decodeJSONResponse(StageRetry, "sorry, I cannot read this invoice", &resp)

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, StageRetry, extErr.Stage)
	assert.Equal(t, "sorry, I cannot read this invoice", extErr.Raw)
}

func TestLLMNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`1180.5`, "1180.5"},
		{`"Rs. 2,360"`, "2360"},
		{`"INR 500"`, "500"},
		{`"12 %"`, "12"},
		{`null`, ""},
		{`""`, ""},
		{`"N/A"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n llmNumber
			require.NoError(t, n.UnmarshalJSON([]byte(tt.in)))
			if tt.want == "" {
				assert.Nil(t, n.Value)
				return
			}
			require.NotNil(t, n.Value)
			assert.Equal(t, tt.want, n.Value.String())
		})
	}
}

func TestIsRetryableGeminiError(t *testing.T) {
	assert.True(t, isRetryableGeminiError(fmt.Errorf("failed: %w", genai.APIError{Code: 429})))
	assert.True(t, isRetryableGeminiError(fmt.Errorf("failed: %w", &genai.APIError{Code: 503})))
	assert.False(t, isRetryableGeminiError(fmt.Errorf("failed: %w", genai.APIError{Code: 400})))
	assert.False(t, isRetryableGeminiError(errors.New("boom")))
}
