package models

// BackendID names the strategy that produced a document's text.
type BackendID string

const (
	BackendPdftotext BackendID = "pdftotext"
	BackendPdfcpu    BackendID = "pdfcpu"
	BackendPlainPDF  BackendID = "ledongthuc"
	BackendDocx      BackendID = "docx"
	BackendOCR       BackendID = "ocr"
)

// ExtractionResult is produced once per document and never mutated afterwards.
type ExtractionResult struct {
	Text        string            `json:"text"`
	BackendUsed BackendID         `json:"backend_used"`
	PageCount   int               `json:"page_count"`
	CharCount   int               `json:"char_count"`
	WordCount   int               `json:"word_count"`
	HasImages   bool              `json:"has_images"`
	HasTables   bool              `json:"has_tables"`
	Confidence  float64           `json:"confidence"`
	Metadata    map[string]string `json:"metadata"`
}
