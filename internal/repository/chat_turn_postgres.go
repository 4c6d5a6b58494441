package repository

import (
	"context"
	"fmt"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatTurnRepository is the append-only chat log
type ChatTurnRepository interface {
	// CreateTurns inserts all turns in one transaction.
	CreateTurns(ctx context.Context, turns ...entity.ChatTurn) error
	ListBySession(ctx context.Context, sessionID string) ([]*entity.ChatTurn, error)
	// ListRecent returns the last limit successful turns of a session in chronological order.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*entity.ChatTurn, error)
}

var _ ChatTurnRepository = &ChatTurnPostgres{}

type ChatTurnPostgres struct {
	db *pgxpool.Pool
}

func NewChatTurnPostgres(db *pgxpool.Pool) *ChatTurnPostgres {
	return &ChatTurnPostgres{db: db}
}

func (r *ChatTurnPostgres) CreateTurns(ctx context.Context, turns ...entity.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range turns {
		id, err := toPgUUID(t.ID)
		if err != nil {
			return err
		}

		chunkIDs := t.ChunkIDs
		if chunkIDs == nil {
			chunkIDs = []int64{}
		}

		provider := pgtype.Text{String: t.Provider, Valid: t.Provider != ""}

		batch.Queue(`
			INSERT INTO chat_turns (id, session_id, sender, message, status, is_rag_enhanced, chunk_ids, provider, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))`,
			id, t.SessionID, string(t.Sender), t.Message, string(t.Status), t.IsRAGEnhanced, chunkIDs, provider,
			pgtype.Timestamptz{Time: t.CreatedAt, Valid: !t.CreatedAt.IsZero()},
		)
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("create chat turns: %w", err)
	}

	return nil
}

func (r *ChatTurnPostgres) ListBySession(ctx context.Context, sessionID string) ([]*entity.ChatTurn, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+chatTurnColumns+`
		FROM chat_turns
		WHERE session_id = $1
		ORDER BY created_at, sender DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chat turns: %w", err)
	}

	return collectChatTurns(rows)
}

func (r *ChatTurnPostgres) ListRecent(ctx context.Context, sessionID string, limit int) ([]*entity.ChatTurn, error) {
	if limit <= 0 {
		return []*entity.ChatTurn{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+chatTurnColumns+` FROM (
			SELECT `+chatTurnColumns+`
			FROM chat_turns
			WHERE session_id = $1 AND status = 'OK'
			ORDER BY created_at DESC, sender
			LIMIT $2
		) recent
		ORDER BY created_at, sender DESC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent chat turns: %w", err)
	}

	return collectChatTurns(rows)
}

func collectChatTurns(rows pgx.Rows) ([]*entity.ChatTurn, error) {
	defer rows.Close()

	turns := make([]*entity.ChatTurn, 0)
	for rows.Next() {
		turn, err := scanChatTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chat turns: %w", err)
	}

	return turns, nil
}
