package models

// These structs define the JSON payloads for the conversion entry points:
// the HTTP function body, the success/error response envelopes, and the
// GCS event that drives the manifest trigger.

// ConversionRequest is the input for one CSV-to-Excel conversion. It is the
// body of the ConvertCsvToExcel HTTP function and the content of a
// conversion manifest object. ConnectionString is the storage credential (a
// service account key JSON, raw or base64-encoded); it travels with the
// request and is never read from ambient state.
type ConversionRequest struct {
	ExcelFilename    string `json:"excel_filename"`
	ContainerName    string `json:"container_name"`
	ConnectionString string `json:"connection_string"`
}

// ConversionResponse is the success envelope returned by the HTTP function.
type ConversionResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ExcelURL  string `json:"excel_url"`
	FileCount int    `json:"file_count"`
}

// ErrorResponse is the failure envelope returned by the HTTP function.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GCSEvent is the subset of the storage object-finalize event payload that
// the manifest trigger needs.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
