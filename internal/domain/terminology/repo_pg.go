package terminology

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const historySchema = `
CREATE TABLE IF NOT EXISTS translation_history (
    id             TEXT PRIMARY KEY,
    source_system  TEXT NOT NULL,
    source_code    TEXT NOT NULL,
    source_display TEXT NOT NULL DEFAULT '',
    success        BOOLEAN NOT NULL,
    message        TEXT NOT NULL DEFAULT '',
    mapped_codes   JSONB NOT NULL DEFAULT '[]'::jsonb,
    translated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS translation_history_translated_at_idx
    ON translation_history (translated_at DESC);`

type historyRepoPG struct {
	pool     *pgxpool.Pool
	capacity int
}

// NewHistoryRepoPG stores history in the translation_history table,
// pruning rows beyond capacity on every insert.
func NewHistoryRepoPG(pool *pgxpool.Pool, capacity int) *historyRepoPG {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &historyRepoPG{pool: pool, capacity: capacity}
}

func (r *historyRepoPG) conn() queryable {
	return r.pool
}

// Migrate creates the history table if it does not exist.
func (r *historyRepoPG) Migrate(ctx context.Context) error {
	if _, err := r.conn().Exec(ctx, historySchema); err != nil {
		return fmt.Errorf("migrate translation_history: %w", err)
	}
	return nil
}

func (r *historyRepoPG) Add(ctx context.Context, e *HistoryEntry) error {
	mapped, err := json.Marshal(e.Result.MappedCodes)
	if err != nil {
		return fmt.Errorf("encode mapped codes: %w", err)
	}
	src := e.Result.OriginalCode
	_, err = r.conn().Exec(ctx,
		`INSERT INTO translation_history
		   (id, source_system, source_code, source_display, success, message, mapped_codes, translated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, src.System, src.Code, src.Display, e.Result.Success, e.Result.Message, mapped, e.TranslatedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	_, err = r.conn().Exec(ctx,
		`DELETE FROM translation_history
		 WHERE id NOT IN (SELECT id FROM translation_history ORDER BY translated_at DESC LIMIT $1)`,
		r.capacity)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

func (r *historyRepoPG) List(ctx context.Context, limit, offset int) ([]*HistoryEntry, int, error) {
	var total int
	if err := r.conn().QueryRow(ctx, `SELECT COUNT(*) FROM translation_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := r.conn().Query(ctx,
		`SELECT id, source_system, source_code, source_display, success, message, mapped_codes, translated_at
		 FROM translation_history
		 ORDER BY translated_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var (
			e      HistoryEntry
			mapped []byte
		)
		src := &e.Result.OriginalCode
		if err := rows.Scan(&e.ID, &src.System, &src.Code, &src.Display, &e.Result.Success, &e.Result.Message, &mapped, &e.TranslatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan history: %w", err)
		}
		if err := json.Unmarshal(mapped, &e.Result.MappedCodes); err != nil {
			return nil, 0, fmt.Errorf("decode mapped codes: %w", err)
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}

func (r *historyRepoPG) Clear(ctx context.Context) error {
	if _, err := r.conn().Exec(ctx, `DELETE FROM translation_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
