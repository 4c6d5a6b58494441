package repository

import (
	"fmt"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func toPgUUID(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: invalid id %q", entity.ErrInvalidParameter, id)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func fromPgUUID(id pgtype.UUID) string {
	return uuid.UUID(id.Bytes).String()
}

func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

const documentColumns = `
	d.id, d.title, d.content, d.source_path, d.source_name, d.category, d.is_active, d.status,
	(SELECT COUNT(*) FROM document_chunks c WHERE c.document_id = d.id) AS chunk_count,
	d.processed_at, d.created_at, d.updated_at`

type documentRow struct {
	ID          pgtype.UUID
	Title       string
	Content     string
	SourcePath  pgtype.Text
	SourceName  pgtype.Text
	Category    string
	IsActive    bool
	Status      string
	ChunkCount  int64
	ProcessedAt pgtype.Timestamptz
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var r documentRow
	err := row.Scan(
		&r.ID, &r.Title, &r.Content, &r.SourcePath, &r.SourceName, &r.Category, &r.IsActive, &r.Status,
		&r.ChunkCount, &r.ProcessedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return toEntityDocument(&r), nil
}

func toEntityDocument(r *documentRow) *entity.Document {
	doc := &entity.Document{
		ID:         fromPgUUID(r.ID),
		Title:      r.Title,
		Content:    r.Content,
		SourcePath: fromPgText(r.SourcePath),
		SourceName: fromPgText(r.SourceName),
		Category:   r.Category,
		IsActive:   r.IsActive,
		Status:     entity.DocumentStatus(r.Status),
		ChunkCount: int(r.ChunkCount),
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}

	if r.ProcessedAt.Valid {
		processedAt := r.ProcessedAt.Time
		doc.ProcessedAt = &processedAt
	}

	return doc
}

const chatTurnColumns = `id, session_id, sender, message, status, is_rag_enhanced, chunk_ids, provider, created_at`

type chatTurnRow struct {
	ID            pgtype.UUID
	SessionID     string
	Sender        string
	Message       string
	Status        string
	IsRAGEnhanced bool
	ChunkIDs      []int64
	Provider      pgtype.Text
	CreatedAt     pgtype.Timestamptz
}

func scanChatTurn(row pgx.Row) (*entity.ChatTurn, error) {
	var r chatTurnRow
	err := row.Scan(&r.ID, &r.SessionID, &r.Sender, &r.Message, &r.Status, &r.IsRAGEnhanced, &r.ChunkIDs, &r.Provider, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &entity.ChatTurn{
		ID:            fromPgUUID(r.ID),
		SessionID:     r.SessionID,
		Sender:        entity.Sender(r.Sender),
		Message:       r.Message,
		Status:        entity.ChatTurnStatus(r.Status),
		IsRAGEnhanced: r.IsRAGEnhanced,
		ChunkIDs:      r.ChunkIDs,
		Provider:      r.Provider.String,
		CreatedAt:     r.CreatedAt.Time,
	}, nil
}
