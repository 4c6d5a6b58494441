package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, doc entity.Document) (*entity.Document, error)
	Get(ctx context.Context, id string) (*entity.Document, error)
	List(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error)
	ListIDs(ctx context.Context) ([]string, error)
	Update(ctx context.Context, doc entity.Document) (*entity.Document, error)
	SetStatus(ctx context.Context, id string, status entity.DocumentStatus) error
	MarkAllStale(ctx context.Context) error
	Delete(ctx context.Context, id string) error
}

var _ DocumentRepository = &DocumentPostgres{}

// DocumentPostgres implements DocumentRepository using PostgreSQL
type DocumentPostgres struct {
	db *pgxpool.Pool
}

func NewDocumentPostgres(db *pgxpool.Pool) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

func (r *DocumentPostgres) Create(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	id, err := toPgUUID(doc.ID)
	if err != nil {
		return nil, err
	}

	query := `
		WITH d AS (
			INSERT INTO documents (id, title, content, source_path, source_name, category, is_active, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT ` + documentColumns + ` FROM d`

	created, err := scanDocument(r.db.QueryRow(ctx, query,
		id, doc.Title, doc.Content, toPgText(doc.SourcePath), toPgText(doc.SourceName),
		doc.Category, doc.IsActive, string(doc.Status),
	))
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	return created, nil
}

func (r *DocumentPostgres) Get(ctx context.Context, id string) (*entity.Document, error) {
	docID, err := toPgUUID(id)
	if err != nil {
		return nil, entity.ErrDocumentNotFound
	}

	query := `SELECT ` + documentColumns + ` FROM documents d WHERE d.id = $1`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, docID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

func (r *DocumentPostgres) List(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents d
		WHERE ($1 = '' OR d.category = $1)
		  AND (NOT $2 OR d.is_active)
		ORDER BY d.created_at DESC, d.id
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, req.Category, req.ActiveOnly, req.Limit, req.Skip)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*entity.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}

func (r *DocumentPostgres) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id pgtype.UUID
		if err := row.Scan(&id); err != nil {
			return "", err
		}
		return fromPgUUID(id), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}

	return ids, nil
}

// Update stores metadata and content. Lifecycle status is changed only through SetStatus.
func (r *DocumentPostgres) Update(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	id, err := toPgUUID(doc.ID)
	if err != nil {
		return nil, entity.ErrDocumentNotFound
	}

	query := `
		WITH d AS (
			UPDATE documents
			SET title = $2, content = $3, source_path = $4, source_name = $5,
			    category = $6, is_active = $7, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + documentColumns + ` FROM d`

	updated, err := scanDocument(r.db.QueryRow(ctx, query,
		id, doc.Title, doc.Content, toPgText(doc.SourcePath), toPgText(doc.SourceName),
		doc.Category, doc.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	return updated, nil
}

func (r *DocumentPostgres) SetStatus(ctx context.Context, id string, status entity.DocumentStatus) error {
	docID, err := toPgUUID(id)
	if err != nil {
		return entity.ErrDocumentNotFound
	}

	var processedAt pgtype.Timestamptz
	if status == entity.DocumentStatusProcessed {
		processedAt = pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE documents
		SET status = $2,
		    processed_at = COALESCE($3, processed_at),
		    updated_at = NOW()
		WHERE id = $1`,
		docID, string(status), processedAt,
	)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}

	return nil
}

func (r *DocumentPostgres) MarkAllStale(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `UPDATE documents SET status = $1, updated_at = NOW()`, string(entity.DocumentStatusStale))
	if err != nil {
		return fmt.Errorf("mark documents stale: %w", err)
	}
	return nil
}

// Delete removes the document; its chunks go with it through ON DELETE CASCADE.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	docID, err := toPgUUID(id)
	if err != nil {
		return entity.ErrDocumentNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}

	return nil
}
