package services

import "fmt"

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildExtractionPrompt asks for the full seven-field invoice object.
func (pb *PromptBuilder) BuildExtractionPrompt(ocrText string) string {
	return fmt.Sprintf(`You are an expert accountant reading an Indian GST tax invoice.

The text below was produced by OCR and may contain recognition errors, broken
lines and table fragments.

INVOICE TEXT:
%s

Extract the following fields and return ONLY a JSON object with exactly these keys:
{
  "invoice_number": "<invoice number as printed, or null>",
  "invoice_date": "<invoice date in YYYY-MM-DD format, or null>",
  "vendor_name": "<name of the seller issuing the invoice, or null>",
  "vendor_gstin": "<15 character GSTIN of the seller, or null>",
  "amount": <grand total payable INCLUDING tax, as a number, or null>,
  "gst_amount": <total GST charged (CGST + SGST, or IGST), as a number, or null>,
  "gst_rate": <GST rate as a percentage number such as 5, 12, 18 or 28, or null>
}

Rules:
- Use null for any value you cannot find. Do not guess identifiers.
- Numbers must be plain JSON numbers without currency symbols or thousands separators.
- vendor_gstin belongs to the seller, not the buyer.
- If CGST and SGST are listed separately, gst_amount is their sum and gst_rate is the combined rate.
- If only two of amount, gst_amount and gst_rate are printed, calculate the third:
  base = amount - gst_amount, gst_rate = gst_amount / base * 100,
  gst_amount = amount - amount / (1 + gst_rate / 100).
- Return only the JSON object, with no explanation or markdown.`, ocrText)
}

// BuildAmountsRetryPrompt is the narrower second pass used when the money
// fields came back incomplete.
func (pb *PromptBuilder) BuildAmountsRetryPrompt(ocrText string) string {
	return fmt.Sprintf(`The following Indian GST invoice text was produced by OCR.

INVOICE TEXT:
%s

Look carefully at the totals section, tax summary table and any "Grand Total",
"Total Amount", "CGST", "SGST", "IGST" or "Tax Amount" lines.

Return ONLY a JSON object with exactly these keys:
{
  "amount": <grand total including tax, as a number, or null>,
  "gst_amount": <total GST amount, as a number, or null>,
  "gst_rate": <GST rate percentage, as a number, or null>
}

If two of the three values are known, calculate the third. Use null only when a
value truly cannot be determined. Return only the JSON object.`, ocrText)
}
