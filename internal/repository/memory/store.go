// Package memory is an in-memory implementation of the repository
// interfaces. Search is a brute-force cosine scan, equivalent to the
// exact strategy of the Postgres vector store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/vector"
	"github.com/futig/rag-backend/internal/repository"
)

type Store struct {
	mu        sync.RWMutex
	dimension int

	documents   map[string]*entity.Document
	chunks      map[int64]*entity.Chunk
	nextChunkID int64
	turns       []*entity.ChatTurn
	settings    map[string]entity.SettingRecord
}

func NewStore(dimension int) *Store {
	return &Store{
		dimension:   dimension,
		documents:   make(map[string]*entity.Document),
		chunks:      make(map[int64]*entity.Chunk),
		nextChunkID: 1,
		settings:    make(map[string]entity.SettingRecord),
	}
}

func (s *Store) Documents() *Documents { return &Documents{s: s} }
func (s *Store) Chunks() *Chunks       { return &Chunks{s: s} }
func (s *Store) ChatTurns() *ChatTurns { return &ChatTurns{s: s} }
func (s *Store) Settings() *Settings   { return &Settings{s: s} }

var (
	_ repository.DocumentRepository = &Documents{}
	_ repository.ChunkRepository    = &Chunks{}
	_ repository.ChatTurnRepository = &ChatTurns{}
	_ repository.SettingsRepository = &Settings{}
)

// countChunks must be called with s.mu held.
func (s *Store) countChunks(documentID string) int {
	n := 0
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n
}

// snapshot must be called with s.mu held.
func (s *Store) snapshot(doc *entity.Document) *entity.Document {
	cp := *doc
	cp.ChunkCount = s.countChunks(doc.ID)
	return &cp
}

type Documents struct {
	s *Store
}

func (r *Documents) Create(_ context.Context, doc entity.Document) (*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[doc.ID]; ok {
		return nil, fmt.Errorf("create document: duplicate id %s", doc.ID)
	}

	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if doc.Status == "" {
		doc.Status = entity.DocumentStatusDraft
	}

	stored := doc
	r.s.documents[doc.ID] = &stored
	return r.s.snapshot(&stored), nil
}

func (r *Documents) Get(_ context.Context, id string) (*entity.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	doc, ok := r.s.documents[id]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}
	return r.s.snapshot(doc), nil
}

func (r *Documents) List(_ context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	docs := make([]*entity.Document, 0)
	for _, doc := range r.s.documents {
		if req.Category != "" && doc.Category != req.Category {
			continue
		}
		if req.ActiveOnly && !doc.IsActive {
			continue
		}
		docs = append(docs, r.s.snapshot(doc))
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	if req.Skip >= len(docs) {
		return []*entity.Document{}, nil
	}
	docs = docs[req.Skip:]
	if req.Limit > 0 && req.Limit < len(docs) {
		docs = docs[:req.Limit]
	}
	return docs, nil
}

func (r *Documents) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]string, 0, len(r.s.documents))
	for id := range r.s.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Documents) Update(_ context.Context, doc entity.Document) (*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.documents[doc.ID]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}

	stored.Title = doc.Title
	stored.Content = doc.Content
	stored.SourcePath = doc.SourcePath
	stored.SourceName = doc.SourceName
	stored.Category = doc.Category
	stored.IsActive = doc.IsActive
	stored.UpdatedAt = time.Now().UTC()

	return r.s.snapshot(stored), nil
}

func (r *Documents) SetStatus(_ context.Context, id string, status entity.DocumentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.documents[id]
	if !ok {
		return entity.ErrDocumentNotFound
	}

	stored.Status = status
	stored.UpdatedAt = time.Now().UTC()
	if status == entity.DocumentStatusProcessed {
		processedAt := stored.UpdatedAt
		stored.ProcessedAt = &processedAt
	}
	return nil
}

func (r *Documents) MarkAllStale(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, doc := range r.s.documents {
		doc.Status = entity.DocumentStatusStale
	}
	return nil
}

// Delete removes the document and cascades to its chunks.
func (r *Documents) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[id]; !ok {
		return entity.ErrDocumentNotFound
	}

	delete(r.s.documents, id)
	for chunkID, c := range r.s.chunks {
		if c.DocumentID == id {
			delete(r.s.chunks, chunkID)
		}
	}
	return nil
}

type Chunks struct {
	s *Store
}

func (r *Chunks) ReplaceChunks(_ context.Context, documentID string, chunks []entity.ChunkVector) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[documentID]; !ok {
		return fmt.Errorf("%w: document %s does not exist", entity.ErrVectorStore, documentID)
	}

	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("%w: chunk %d has index %d", entity.ErrInvalidParameter, i, c.Index)
		}
		if len(c.Vector) != r.s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				entity.ErrInvalidEmbedding, c.Index, len(c.Vector), r.s.dimension)
		}
	}

	if err := r.otherDocumentsSignature(documentID).Admit(chunks); err != nil {
		return err
	}

	for id, c := range r.s.chunks {
		if c.DocumentID == documentID {
			delete(r.s.chunks, id)
		}
	}

	now := time.Now().UTC()
	for _, c := range chunks {
		id := r.s.nextChunkID
		r.s.nextChunkID++
		r.s.chunks[id] = &entity.Chunk{
			ID:                id,
			DocumentID:        documentID,
			Index:             c.Index,
			Content:           c.Text,
			TokenCount:        c.TokenCount,
			Embedding:         slices.Clone(c.Vector),
			EmbeddingProvider: c.Provider,
			EmbeddingModel:    c.Model,
			CreatedAt:         now,
		}
	}
	return nil
}

func (r *Chunks) Search(_ context.Context, query []float32, topK int, filter entity.SearchFilter) ([]entity.ScoredChunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if topK <= 0 {
		return []entity.ScoredChunk{}, nil
	}
	if len(query) != r.s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", entity.ErrInvalidEmbedding, len(query), r.s.dimension)
	}

	candidates := make([]vector.Candidate, 0, len(r.s.chunks))
	for id, c := range r.s.chunks {
		doc := r.s.documents[c.DocumentID]
		if doc == nil || doc.Status != entity.DocumentStatusProcessed {
			continue
		}
		if filter.ActiveOnly && !doc.IsActive {
			continue
		}
		candidates = append(candidates, vector.Candidate{ID: id, Vector: c.Embedding})
	}

	hits := vector.Rank(candidates, query, topK)

	results := make([]entity.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		c := *r.s.chunks[h.ID]
		results = append(results, entity.ScoredChunk{
			Chunk:         c,
			DocumentTitle: r.s.documents[c.DocumentID].Title,
			Score:         h.Score,
		})
	}
	return results, nil
}

func (r *Chunks) ListByDocument(_ context.Context, documentID string) ([]*entity.Chunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entity.Chunk, 0)
	for _, c := range r.s.chunks {
		if c.DocumentID == documentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (r *Chunks) CountByDocument(_ context.Context, documentID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.countChunks(documentID), nil
}

// otherDocumentsSignature must be called with the store lock held.
func (r *Chunks) otherDocumentsSignature(documentID string) entity.CorpusSignature {
	var first *entity.Chunk
	for _, c := range r.s.chunks {
		if c.DocumentID != documentID && (first == nil || c.ID < first.ID) {
			first = c
		}
	}
	if first == nil {
		return entity.CorpusSignature{}
	}

	return entity.CorpusSignature{
		Provider:  first.EmbeddingProvider,
		Model:     first.EmbeddingModel,
		Dimension: len(first.Embedding),
	}
}

func (r *Chunks) CorpusSignature(_ context.Context) (entity.CorpusSignature, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var first *entity.Chunk
	for _, c := range r.s.chunks {
		if first == nil || c.ID < first.ID {
			first = c
		}
	}
	if first == nil {
		return entity.CorpusSignature{}, nil
	}

	return entity.CorpusSignature{
		Provider:  first.EmbeddingProvider,
		Model:     first.EmbeddingModel,
		Dimension: len(first.Embedding),
	}, nil
}

func (r *Chunks) DeleteAll(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.chunks = make(map[int64]*entity.Chunk)
	return nil
}

type ChatTurns struct {
	s *Store
}

func (r *ChatTurns) CreateTurns(_ context.Context, turns ...entity.ChatTurn) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		t.ChunkIDs = slices.Clone(t.ChunkIDs)
		r.s.turns = append(r.s.turns, &t)
	}
	return nil
}

func (r *ChatTurns) ListBySession(_ context.Context, sessionID string) ([]*entity.ChatTurn, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entity.ChatTurn, 0)
	for _, t := range r.s.turns {
		if t.SessionID == sessionID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *ChatTurns) ListRecent(ctx context.Context, sessionID string, limit int) ([]*entity.ChatTurn, error) {
	all, _ := r.ListBySession(ctx, sessionID)

	ok := make([]*entity.ChatTurn, 0, len(all))
	for _, t := range all {
		if t.Status == entity.ChatTurnStatusOK {
			ok = append(ok, t)
		}
	}

	if limit <= 0 {
		return []*entity.ChatTurn{}, nil
	}
	if len(ok) > limit {
		ok = ok[len(ok)-limit:]
	}
	return ok, nil
}

type Settings struct {
	s *Store
}

func (r *Settings) List(_ context.Context) ([]entity.SettingRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.SettingRecord, 0, len(r.s.settings))
	for _, rec := range r.s.settings {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

func (r *Settings) Upsert(_ context.Context, records ...entity.SettingRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range records {
		r.s.settings[rec.Key] = rec
	}
	return nil
}
