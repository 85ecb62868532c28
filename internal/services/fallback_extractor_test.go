package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestApplyFieldFallbacks_InvoiceNumber(t *testing.T) {
	cases := map[string]string{
		"Tax Invoice\nInvoice No: ABC/123\nDate: 01-01-2025": "ABC/123",
		"INVOICE NO.: GST-2024-0091":                         "GST-2024-0091",
		"Inv # 5561":                                         "5561",
		"invoice number 77/A":                                "77/A",
		"Invoice ID:XYZ9":                                    "XYZ9",
	}

	for text, want := range cases {
		var f FallbackFields
		ApplyFieldFallbacks(text, &f)
		require.NotNil(t, f.InvoiceNumber, text)
		assert.Equal(t, want, *f.InvoiceNumber, text)
	}
}

func TestApplyFieldFallbacks_InvoiceNumberNeedsWholeLabel(t *testing.T) {
	for _, text := range []string{
		"TAX INVOICE\nNOTE: goods once sold will not be taken back",
		"Invoice\nNotes: deliver before noon",
		"Inventory no: 42",
		"Invoice numbered pages follow",
		"Invoice identity verified",
	} {
		var f FallbackFields
		ApplyFieldFallbacks(text, &f)
		assert.Nil(t, f.InvoiceNumber, text)
	}
}

func TestApplyFieldFallbacks_InvoiceDate(t *testing.T) {
	cases := map[string]string{
		"Dated: 15-Mar-2025":           "2025-03-15",
		"Invoice Date: 15/03/2025":     "2025-03-15",
		"Date 5 March 2024":            "2024-03-05",
		"date: 07.11.24":               "2024-11-07",
		"Dated 1-jan-2023 Place: Pune": "2023-01-01",
	}

	for text, want := range cases {
		var f FallbackFields
		ApplyFieldFallbacks(text, &f)
		require.NotNil(t, f.InvoiceDate, text)
		assert.Equal(t, want, *f.InvoiceDate, text)
	}
}

func TestApplyFieldFallbacks_UnparseableDateStaysNil(t *testing.T) {
	var f FallbackFields
	ApplyFieldFallbacks("Date: 45-Foo-2025", &f)
	assert.Nil(t, f.InvoiceDate)

	ApplyFieldFallbacks("no dates in here", &f)
	assert.Nil(t, f.InvoiceDate)
}

func TestApplyFieldFallbacks_GSTIN(t *testing.T) {
	var f FallbackFields
	ApplyFieldFallbacks("Seller GSTIN:22AAAAA0000A1Z5 State: MH", &f)
	require.NotNil(t, f.VendorGSTIN)
	assert.Equal(t, "22AAAAA0000A1Z5", *f.VendorGSTIN)
}

func TestApplyFieldFallbacks_KeepsPresentValues(t *testing.T) {
	f := FallbackFields{
		InvoiceNumber: strPtr("LLM-1"),
		InvoiceDate:   strPtr("2024-01-01"),
		VendorGSTIN:   strPtr("27BBBBB1111B1Z1"),
	}
	ApplyFieldFallbacks("Invoice No: ABC/123 Dated: 15-Mar-2025 22AAAAA0000A1Z5", &f)

	assert.Equal(t, "LLM-1", *f.InvoiceNumber)
	assert.Equal(t, "2024-01-01", *f.InvoiceDate)
	assert.Equal(t, "27BBBBB1111B1Z1", *f.VendorGSTIN)
}

func TestApplyFieldFallbacks_FieldsAreIndependent(t *testing.T) {
	f := FallbackFields{InvoiceNumber: strPtr("KEEP")}
	ApplyFieldFallbacks("Dated: 15-Mar-2025", &f)

	assert.Equal(t, "KEEP", *f.InvoiceNumber)
	require.NotNil(t, f.InvoiceDate)
	assert.Equal(t, "2025-03-15", *f.InvoiceDate)
	assert.Nil(t, f.VendorGSTIN)
}

func TestNormalizeGSTIN(t *testing.T) {
	got := normalizeGSTIN(strPtr(" 22aaaaa0000a1z5 "))
	require.NotNil(t, got)
	assert.Equal(t, "22AAAAA0000A1Z5", *got)

	assert.Nil(t, normalizeGSTIN(strPtr("GSTIN123")))
	assert.Nil(t, normalizeGSTIN(nil))
}
