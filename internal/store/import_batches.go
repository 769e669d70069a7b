package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jpcc/flock/internal/models"
)

// RecordImportBatch stores the outcome of a spreadsheet import.
// ID and CreatedAt are filled in when empty.
func (db *DB) RecordImportBatch(ctx context.Context, b *models.ImportBatch) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = db.now()
	}
	_, err := db.exec(ctx,
		`INSERT INTO import_batches (id, file_name, imported, failed, dry_run, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.FileName, b.Imported, b.Failed, b.DryRun, b.UserID, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("record import batch: %w", err)
	}
	return nil
}

// ListImportBatches returns the most recent batches first. limit <= 0 means 50.
func (db *DB) ListImportBatches(ctx context.Context, limit int) ([]models.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := db.sb.Select("id", "file_name", "imported", "failed", "dry_run", "user_id", "created_at").
		From("import_batches").OrderBy("created_at DESC", "id").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list import batches: %w", err)
	}
	batches := []models.ImportBatch{}
	if err := sqlx.SelectContext(ctx, db.conn, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return batches, nil
}
