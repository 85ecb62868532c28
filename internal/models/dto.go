package models

type UploadedInvoice struct {
	ID       string   `json:"id"`
	FileName string   `json:"file_name"`
	FileURL  string   `json:"file_url"`
	Invoice  *Invoice `json:"invoice"`
}

type UploadError struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

type UploadResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Results []UploadedInvoice `json:"results"`
	Errors  []UploadError     `json:"errors"`
}

type InvoiceListResponse struct {
	Invoices []Invoice `json:"invoices"`
	Total    int64     `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

type UpdateReconciliationRequest struct {
	Status string `json:"status"`
}

type ReprocessResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
