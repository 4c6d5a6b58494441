package entity

import "fmt"

// EmbeddingResult is the gateway outcome for a single text
type EmbeddingResult struct {
	Success bool      `json:"success"`
	Vector  []float32 `json:"vector,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// CorpusSignature identifies how the vectors currently in the store were produced.
// A zero Dimension means the store is empty.
type CorpusSignature struct {
	Provider  string
	Model     string
	Dimension int
}

// IsEmpty reports whether no vectors are stored
func (s CorpusSignature) IsEmpty() bool {
	return s.Dimension == 0
}

// Admit checks that chunks can join a corpus with this signature: every chunk
// must come from one provider and model, and match the stored vectors if any.
func (s CorpusSignature) Admit(chunks []ChunkVector) error {
	if len(chunks) == 0 {
		return nil
	}

	want := s
	if want.IsEmpty() {
		want = CorpusSignature{Provider: chunks[0].Provider, Model: chunks[0].Model, Dimension: len(chunks[0].Vector)}
	}

	for _, c := range chunks {
		if c.Provider != want.Provider || c.Model != want.Model || len(c.Vector) != want.Dimension {
			return fmt.Errorf("%w: chunk %d was embedded with %s/%s (%d), corpus uses %s/%s (%d)",
				ErrEmbeddingConfig, c.Index, c.Provider, c.Model, len(c.Vector), want.Provider, want.Model, want.Dimension)
		}
	}
	return nil
}

// ChunkVector is a chunk ready to be written to the vector store
type ChunkVector struct {
	Index      int
	Text       string
	TokenCount int
	Vector     []float32
	Provider   string
	Model      string
}

type SearchFilter struct {
	ActiveOnly bool
}

// ScoredChunk is a vector store hit
type ScoredChunk struct {
	Chunk         Chunk
	DocumentTitle string
	Score         float64
}

// RetrievedChunk is a retriever result item
type RetrievedChunk struct {
	ChunkID       int64   `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"chunk_text"`
	TokenCount    int     `json:"token_count"`
	Score         float64 `json:"score"`
}
