package repository

import (
	"context"
	"fmt"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository stores runtime settings as typed key/value rows
type SettingsRepository interface {
	List(ctx context.Context) ([]entity.SettingRecord, error)
	Upsert(ctx context.Context, records ...entity.SettingRecord) error
}

var _ SettingsRepository = &SettingsPostgres{}

type SettingsPostgres struct {
	db *pgxpool.Pool
}

func NewSettingsPostgres(db *pgxpool.Pool) *SettingsPostgres {
	return &SettingsPostgres{db: db}
}

func (r *SettingsPostgres) List(ctx context.Context) ([]entity.SettingRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value, type FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.SettingRecord, error) {
		var (
			rec     entity.SettingRecord
			setType string
		)
		if err := row.Scan(&rec.Key, &rec.Value, &setType); err != nil {
			return rec, err
		}
		rec.Type = entity.SettingType(setType)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	return records, nil
}

// Upsert writes all records atomically.
func (r *SettingsPostgres) Upsert(ctx context.Context, records ...entity.SettingRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO settings (key, value, type, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, type = EXCLUDED.type, updated_at = NOW()`,
			rec.Key, rec.Value, string(rec.Type),
		)
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	return nil
}
