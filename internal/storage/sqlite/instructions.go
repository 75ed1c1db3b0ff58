package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/log"
)

// InstructionRepo stores the durable instruction snapshot.
type InstructionRepo struct {
	db *sql.DB
}

func NewInstructionRepo(db *sql.DB) *InstructionRepo {
	return &InstructionRepo{db: db}
}

func (r *InstructionRepo) Load(ctx context.Context) ([]core.InstructionRecord, error) {
	query := `SELECT id, text, type, priority, scope, category, session_id, created_at,
		last_used_at, usage_count, is_active, source_message, replaces
		FROM instructions ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instructions: %w", err)
	}
	defer rows.Close()

	var records []core.InstructionRecord
	for rows.Next() {
		var rec core.InstructionRecord
		var createdAt string
		var lastUsed sql.NullString

		if err := rows.Scan(
			&rec.ID, &rec.Text, &rec.Type, &rec.Priority, &rec.Scope, &rec.Category, &rec.SessionID,
			&createdAt, &lastUsed, &rec.UsageCount, &rec.Active, &rec.SourceMessage, &rec.Replaces,
		); err != nil {
			return nil, fmt.Errorf("failed to scan instruction: %w", err)
		}

		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("instruction %s: bad created_at: %w", rec.ID, err)
		}
		if lastUsed.Valid && lastUsed.String != "" {
			t, err := time.Parse(time.RFC3339Nano, lastUsed.String)
			if err != nil {
				return nil, fmt.Errorf("instruction %s: bad last_used_at: %w", rec.ID, err)
			}
			rec.LastUsed = &t
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().Int("count", len(records)).Msg("loaded instructions")
	return records, nil
}

// Save replaces the stored snapshot with records in a single transaction.
func (r *InstructionRepo) Save(ctx context.Context, records []core.InstructionRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM instructions`); err != nil {
		return fmt.Errorf("failed to clear instructions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO instructions
		(id, text, type, priority, scope, category, session_id, created_at,
		last_used_at, usage_count, is_active, source_message, replaces)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var lastUsed sql.NullString
		if rec.LastUsed != nil {
			lastUsed = sql.NullString{String: rec.LastUsed.UTC().Format(time.RFC3339Nano), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.Text, string(rec.Type), rec.Priority, string(rec.Scope), rec.Category, rec.SessionID,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano), lastUsed, rec.UsageCount, rec.Active,
			rec.SourceMessage, rec.Replaces,
		)
		if err != nil {
			return fmt.Errorf("failed to insert instruction %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit instructions: %w", err)
	}
	return nil
}
