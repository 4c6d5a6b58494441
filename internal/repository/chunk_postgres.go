package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/vector"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// Vector search modes
const (
	SearchModeAuto  = "auto"
	SearchModeHNSW  = "hnsw"
	SearchModeExact = "exact"
)

// ChunkRepository is the vector store: chunks with their embeddings and similarity search
type ChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []entity.ChunkVector) error
	Search(ctx context.Context, query []float32, topK int, filter entity.SearchFilter) ([]entity.ScoredChunk, error)
	ListByDocument(ctx context.Context, documentID string) ([]*entity.Chunk, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	CorpusSignature(ctx context.Context) (entity.CorpusSignature, error)
	DeleteAll(ctx context.Context) error
}

var _ ChunkRepository = &ChunkPostgres{}

// ChunkPostgres stores vectors as JSON for every row and, when pgvector is
// available, additionally in a native vector(D) column behind an HNSW index.
type ChunkPostgres struct {
	db        *pgxpool.Pool
	dimension int
	strategy  string
	logger    *zap.Logger
}

// NewChunkPostgres detects the search capability of the database and prepares the schema for it.
func NewChunkPostgres(ctx context.Context, db *pgxpool.Pool, dimension int, mode string, logger *zap.Logger) (*ChunkPostgres, error) {
	r := &ChunkPostgres{
		db:        db,
		dimension: dimension,
		logger:    logger,
	}

	strategy, err := r.detectStrategy(ctx, mode)
	if err != nil {
		return nil, err
	}
	r.strategy = strategy

	logger.Info("vector store ready",
		zap.String("search_strategy", strategy),
		zap.Int("dimension", dimension),
	)

	return r, nil
}

// Strategy returns the active search strategy, hnsw or exact.
func (r *ChunkPostgres) Strategy() string {
	return r.strategy
}

func (r *ChunkPostgres) Dimension() int {
	return r.dimension
}

func (r *ChunkPostgres) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ChunkPostgres) detectStrategy(ctx context.Context, mode string) (string, error) {
	if mode == SearchModeExact {
		return SearchModeExact, nil
	}

	available, err := r.vectorExtensionAvailable(ctx)
	if err != nil {
		return "", err
	}

	if !available {
		if mode == SearchModeHNSW {
			return "", fmt.Errorf("%w: pgvector extension is not available but hnsw search was requested", entity.ErrVectorStore)
		}
		r.logger.Warn("pgvector extension is not available, using exact cosine scan")
		return SearchModeExact, nil
	}

	if err := r.prepareVectorColumn(ctx); err != nil {
		return "", err
	}

	return SearchModeHNSW, nil
}

func (r *ChunkPostgres) vectorExtensionAvailable(ctx context.Context) (bool, error) {
	var installed bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`).Scan(&installed)
	if err != nil {
		return false, fmt.Errorf("check vector extension: %w", err)
	}
	if installed {
		return true, nil
	}

	if _, err := r.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		r.logger.Info("cannot create vector extension", zap.Error(err))
		return false, nil
	}

	// Connections opened before the extension existed have no vector codec.
	r.db.Reset()

	return true, nil
}

// prepareVectorColumn adds the native column, backfills it from JSON and builds the index.
// A column created for a different dimension stops start-up: the corpus must be re-embedded first.
func (r *ChunkPostgres) prepareVectorColumn(ctx context.Context) error {
	var columnType pgtype.Text
	err := r.db.QueryRow(ctx, `
		SELECT format_type(atttypid, atttypmod)
		FROM pg_attribute
		WHERE attrelid = 'document_chunks'::regclass AND attname = 'embedding' AND NOT attisdropped`,
	).Scan(&columnType)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("inspect embedding column: %w", err)
	}

	if columnType.Valid {
		dim, ok := parseVectorDimension(columnType.String)
		if !ok || dim != r.dimension {
			return fmt.Errorf("%w: embedding column is %s but EMBEDDING_DIMENSION is %d",
				entity.ErrEmbeddingConfig, columnType.String, r.dimension)
		}
	} else {
		stmt := fmt.Sprintf(`ALTER TABLE document_chunks ADD COLUMN IF NOT EXISTS embedding vector(%d)`, r.dimension)
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("add embedding column: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE document_chunks
		SET embedding = embedding_json::text::vector
		WHERE embedding IS NULL AND embedding_dim = $1`, r.dimension)
	if err != nil {
		return fmt.Errorf("backfill embedding column: %w", err)
	}
	if tag.RowsAffected() > 0 {
		r.logger.Info("backfilled native vectors", zap.Int64("rows", tag.RowsAffected()))
	}

	_, err = r.db.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding_hnsw
		ON document_chunks USING hnsw (embedding vector_cosine_ops)`)
	if err != nil {
		// Search still works through the operator, only without the index.
		r.logger.Warn("cannot create hnsw index", zap.Error(err))
	}

	return nil
}

// parseVectorDimension reads D from a type name such as "vector(1536)".
func parseVectorDimension(typeName string) (int, bool) {
	if !strings.HasPrefix(typeName, "vector(") || !strings.HasSuffix(typeName, ")") {
		return 0, false
	}
	dim, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(typeName, "vector("), ")"))
	if err != nil {
		return 0, false
	}
	return dim, true
}

func (r *ChunkPostgres) validateChunks(chunks []entity.ChunkVector) error {
	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("%w: chunk %d has index %d", entity.ErrInvalidParameter, i, c.Index)
		}
		if len(c.Vector) != r.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				entity.ErrInvalidEmbedding, c.Index, len(c.Vector), r.dimension)
		}
	}
	return nil
}

// ReplaceChunks swaps all chunks of a document in one transaction.
// Every vector is checked before anything is written.
func (r *ChunkPostgres) ReplaceChunks(ctx context.Context, documentID string, chunks []entity.ChunkVector) error {
	docID, err := toPgUUID(documentID)
	if err != nil {
		return err
	}

	if err := r.validateChunks(chunks); err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", entity.ErrVectorStore, err)
	}
	defer tx.Rollback(ctx)

	if err := r.admitToCorpus(ctx, tx, docID, chunks); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("%w: delete chunks: %v", entity.ErrVectorStore, err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		args, err := r.chunkRowArgs(docID, c)
		if err != nil {
			return err
		}

		if r.strategy == SearchModeHNSW {
			batch.Queue(`
				INSERT INTO document_chunks
					(document_id, chunk_index, content, token_count, embedding_json, embedding_dim,
					 embedding_provider, embedding_model, embedding)
				VALUES ($1, $2, $3, $4, $5::text::jsonb, $6, $7, $8, $9)`, args...)
			continue
		}

		batch.Queue(`
			INSERT INTO document_chunks
				(document_id, chunk_index, content, token_count, embedding_json, embedding_dim,
				 embedding_provider, embedding_model)
			VALUES ($1, $2, $3, $4, $5::text::jsonb, $6, $7, $8)`, args...)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%w: insert chunks: %v", entity.ErrVectorStore, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", entity.ErrVectorStore, err)
	}

	return nil
}

// corpusWriteLock is the advisory lock key held by every chunk writer until commit.
const corpusWriteLock int64 = 0x72616763 // "ragc"

// admitToCorpus re-reads the signature of the other documents under the write
// lock, so writers racing a settings change cannot mix providers in one corpus.
func (r *ChunkPostgres) admitToCorpus(ctx context.Context, tx pgx.Tx, docID pgtype.UUID, chunks []entity.ChunkVector) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, corpusWriteLock); err != nil {
		return fmt.Errorf("%w: lock corpus: %v", entity.ErrVectorStore, err)
	}

	var sig entity.CorpusSignature
	err := tx.QueryRow(ctx, `
		SELECT embedding_provider, embedding_model, embedding_dim
		FROM document_chunks
		WHERE document_id <> $1
		ORDER BY id
		LIMIT 1`, docID,
	).Scan(&sig.Provider, &sig.Model, &sig.Dimension)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: read corpus signature: %v", entity.ErrVectorStore, err)
	}

	return sig.Admit(chunks)
}

// chunkRowArgs builds the insert parameters of one chunk. The HNSW strategy
// adds the vector itself, bound through the registered pgvector codec.
func (r *ChunkPostgres) chunkRowArgs(docID pgtype.UUID, c entity.ChunkVector) ([]any, error) {
	embeddingJSON, err := encodeEmbedding(c.Vector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidEmbedding, err)
	}

	args := []any{docID, c.Index, c.Text, c.TokenCount, embeddingJSON, len(c.Vector), c.Provider, c.Model}
	if r.strategy == SearchModeHNSW {
		args = append(args, pgvector.NewVector(c.Vector))
	}
	return args, nil
}

// Search returns the topK most similar chunks of processed documents,
// by cosine similarity descending with ties broken by lower chunk id.
func (r *ChunkPostgres) Search(ctx context.Context, query []float32, topK int, filter entity.SearchFilter) ([]entity.ScoredChunk, error) {
	if topK <= 0 {
		return []entity.ScoredChunk{}, nil
	}

	if len(query) != r.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", entity.ErrInvalidEmbedding, len(query), r.dimension)
	}

	if r.strategy == SearchModeHNSW {
		return r.searchHNSW(ctx, query, topK, filter)
	}
	return r.searchExact(ctx, query, topK, filter)
}

const scoredChunkColumns = `
	c.id, c.document_id, c.chunk_index, c.content, c.token_count,
	c.embedding_provider, c.embedding_model, c.created_at, d.title`

// HNSW candidate list bounds. pgvector caps ef_search at 1000.
const (
	minEfSearch    = 40
	maxEfSearch    = 1000
	efSearchFactor = 10
)

// efSearchFor sizes the candidate list so filtered-out chunks near the query
// do not starve the result below topK.
func efSearchFor(topK int) int {
	return min(max(minEfSearch, topK*efSearchFactor), maxEfSearch)
}

func (r *ChunkPostgres) searchHNSW(ctx context.Context, query []float32, topK int, filter entity.SearchFilter) ([]entity.ScoredChunk, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", entity.ErrVectorStore, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, efSearchFor(topK))); err != nil {
		return nil, fmt.Errorf("%w: set ef_search: %v", entity.ErrVectorStore, err)
	}
	r.enableIterativeScan(ctx, tx)

	rows, err := tx.Query(ctx, `
		SELECT `+scoredChunkColumns+`, 1 - (c.embedding <=> $1) AS score
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = 'PROCESSED'
		  AND (NOT $2 OR d.is_active)
		  AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $1, c.id
		LIMIT $3`,
		pgvector.NewVector(query), filter.ActiveOnly, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: hnsw search: %v", entity.ErrVectorStore, err)
	}
	defer rows.Close()

	results := make([]entity.ScoredChunk, 0, topK)
	for rows.Next() {
		var (
			sc    entity.ScoredChunk
			score float64
		)
		if err := scanScoredChunk(rows, &sc, &score); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", entity.ErrVectorStore, err)
		}
		sc.Score = score
		results = append(results, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: hnsw search: %v", entity.ErrVectorStore, err)
	}

	return results, nil
}

// enableIterativeScan lets pgvector 0.8+ keep scanning the index until enough
// rows pass the filter. Older versions reject the setting, which only rolls back the savepoint.
func (r *ChunkPostgres) enableIterativeScan(ctx context.Context, tx pgx.Tx) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return
	}
	if _, err := sp.Exec(ctx, `SET LOCAL hnsw.iterative_scan = strict_order`); err != nil {
		r.logger.Debug("hnsw iterative scan is not supported", zap.Error(err))
		_ = sp.Rollback(ctx)
		return
	}
	_ = sp.Commit(ctx)
}

func (r *ChunkPostgres) searchExact(ctx context.Context, query []float32, topK int, filter entity.SearchFilter) ([]entity.ScoredChunk, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+scoredChunkColumns+`, c.embedding_json::text
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = 'PROCESSED'
		  AND (NOT $1 OR d.is_active)
		  AND c.embedding_dim = $2`,
		filter.ActiveOnly, r.dimension,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: exact search: %v", entity.ErrVectorStore, err)
	}
	defer rows.Close()

	var (
		candidates []vector.Candidate
		byID       = make(map[int64]entity.ScoredChunk)
	)
	for rows.Next() {
		var (
			sc  entity.ScoredChunk
			raw string
		)
		if err := scanScoredChunk(rows, &sc, &raw); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", entity.ErrVectorStore, err)
		}

		v, err := decodeEmbedding(raw)
		if err != nil {
			r.logger.Warn("skipping chunk with unreadable embedding", zap.Int64("chunk_id", sc.Chunk.ID), zap.Error(err))
			continue
		}

		candidates = append(candidates, vector.Candidate{ID: sc.Chunk.ID, Vector: v})
		byID[sc.Chunk.ID] = sc
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: exact search: %v", entity.ErrVectorStore, err)
	}

	hits := vector.Rank(candidates, query, topK)

	results := make([]entity.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		sc := byID[h.ID]
		sc.Score = h.Score
		results = append(results, sc)
	}

	return results, nil
}

func scanScoredChunk(row pgx.Row, sc *entity.ScoredChunk, extra any) error {
	var (
		docID     pgtype.UUID
		createdAt pgtype.Timestamptz
	)

	err := row.Scan(
		&sc.Chunk.ID, &docID, &sc.Chunk.Index, &sc.Chunk.Content, &sc.Chunk.TokenCount,
		&sc.Chunk.EmbeddingProvider, &sc.Chunk.EmbeddingModel, &createdAt, &sc.DocumentTitle,
		extra,
	)
	if err != nil {
		return err
	}

	sc.Chunk.DocumentID = fromPgUUID(docID)
	sc.Chunk.CreatedAt = createdAt.Time
	return nil
}

func (r *ChunkPostgres) ListByDocument(ctx context.Context, documentID string) ([]*entity.Chunk, error) {
	docID, err := toPgUUID(documentID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, chunk_index, content, token_count, embedding_provider, embedding_model, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]*entity.Chunk, 0)
	for rows.Next() {
		var (
			c         = &entity.Chunk{DocumentID: documentID}
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&c.ID, &c.Index, &c.Content, &c.TokenCount, &c.EmbeddingProvider, &c.EmbeddingModel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.CreatedAt = createdAt.Time
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	return chunks, nil
}

func (r *ChunkPostgres) CountByDocument(ctx context.Context, documentID string) (int, error) {
	docID, err := toPgUUID(documentID)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`, docID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}

	return int(count), nil
}

// CorpusSignature reports provider, model and dimension of the stored vectors.
// All rows share one signature, so any row is representative.
func (r *ChunkPostgres) CorpusSignature(ctx context.Context) (entity.CorpusSignature, error) {
	var sig entity.CorpusSignature
	err := r.db.QueryRow(ctx, `
		SELECT embedding_provider, embedding_model, embedding_dim
		FROM document_chunks
		ORDER BY id
		LIMIT 1`,
	).Scan(&sig.Provider, &sig.Model, &sig.Dimension)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.CorpusSignature{}, nil
		}
		return entity.CorpusSignature{}, fmt.Errorf("read corpus signature: %w", err)
	}

	return sig, nil
}

func (r *ChunkPostgres) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM document_chunks`); err != nil {
		return fmt.Errorf("%w: delete all chunks: %v", entity.ErrVectorStore, err)
	}
	return nil
}

func encodeEmbedding(v []float32) (string, error) {
	if !vector.IsFinite(v) {
		return "", fmt.Errorf("embedding contains NaN or Inf")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(b), nil
}

func decodeEmbedding(raw string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return v, nil
}
