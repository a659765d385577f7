package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Format       string `json:"format"`
}

type ParseRequest struct {
	DocumentID string `json:"document_id" validate:"required,uuid"`
}

type ParseResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Result       *ParseData `json:"result,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

type ParseData struct {
	Record     *Resume           `json:"record"`
	Validation *ValidationReport `json:"validation"`
	Backend    string            `json:"backend"`
	Confidence float64           `json:"confidence"`
	Enriched   bool              `json:"enriched"`
}

type SearchResponse struct {
	Query string         `json:"query"`
	Hits  []CandidateHit `json:"hits"`
}

type CandidateHit struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename,omitempty"`
	Section    string  `json:"section"`
	Name       string  `json:"name,omitempty"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}
