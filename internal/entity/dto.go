package entity

type ListDocumentsResponse struct {
	Documents []*Document `json:"documents"`
	Count     int         `json:"count"`
}

type ListChunksResponse struct {
	DocumentID string   `json:"document_id"`
	Chunks     []*Chunk `json:"chunks"`
}

// IngestionPendingResponse is returned when a document was stored but could not be indexed yet
type IngestionPendingResponse struct {
	Document *Document `json:"document"`
	Message  string    `json:"message"`
	Retry    string    `json:"retry"`
}

type DeleteDocumentResponse struct {
	Status string `json:"status"`
}

type ChatHistoryResponse struct {
	SessionID string      `json:"session_id"`
	Turns     []*ChatTurn `json:"turns"`
}

type SettingsResponse struct {
	Settings []SettingRecord `json:"settings"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	VectorSearch   string `json:"vector_search"`
	EmbeddingDim   int    `json:"embedding_dimension"`
	DatabaseStatus string `json:"database"`
}
