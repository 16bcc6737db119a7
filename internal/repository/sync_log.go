package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tajer-app/locations/internal/domain"
)

type syncLogRepository struct {
	db *sqlx.DB
}

func newSyncLogRepository(conn *sqlx.DB) *syncLogRepository {
	return &syncLogRepository{
		db: conn,
	}
}

func (r *syncLogRepository) Create(ctx context.Context, entry *domain.SyncLogEntry) error {
	const query = `
	INSERT INTO location_sync_logs (id, progress_id, partner, triggered_by, started_at, ended_at,
	cities_count, regions_count, success, error_message, duration_seconds)
	VALUES (:id, :progress_id, :partner, :triggered_by, :started_at, :ended_at,
	:cities_count, :regions_count, :success, :error_message, :duration_seconds);
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert sync log failed: %w", err)
	}
	return nil
}

func (r *syncLogRepository) List(ctx context.Context, limit int) ([]domain.SyncLogEntry, error) {
	const query = `
	SELECT id, progress_id, partner, triggered_by, started_at, ended_at, cities_count, regions_count,
	success, error_message, duration_seconds
	FROM location_sync_logs ORDER BY started_at DESC LIMIT ?;
	`
	var entries []domain.SyncLogEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), limit); err != nil {
		return nil, fmt.Errorf("select sync logs failed: %w", err)
	}
	return entries, nil
}
