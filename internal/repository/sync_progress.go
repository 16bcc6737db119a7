package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tajer-app/locations/internal/domain"
)

const syncProgressColumns = `id, triggered_by, partner, sync_type, status, total_cities, completed_cities,
	total_regions, completed_regions, current_city_name, started_at, updated_at, completed_at, error_message`

type syncProgressRepository struct {
	db *sqlx.DB
}

func newSyncProgressRepository(conn *sqlx.DB) *syncProgressRepository {
	return &syncProgressRepository{
		db: conn,
	}
}

func (r *syncProgressRepository) Create(ctx context.Context, progress *domain.SyncProgress) error {
	const query = `
	INSERT INTO background_sync_progress (` + syncProgressColumns + `)
	VALUES (:id, :triggered_by, :partner, :sync_type, :status, :total_cities, :completed_cities,
	:total_regions, :completed_regions, :current_city_name, :started_at, :updated_at, :completed_at, :error_message);
	`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("insert sync progress failed: %w", err)
	}
	return nil
}

func (r *syncProgressRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncProgress, error) {
	query := `SELECT ` + syncProgressColumns + ` FROM background_sync_progress WHERE id = ?`

	var progress domain.SyncProgress
	if err := r.db.GetContext(ctx, &progress, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select sync progress by id failed: %w", err)
	}
	return &progress, nil
}

// FindActive returns the most recent pending or in-progress run of partner.
func (r *syncProgressRepository) FindActive(ctx context.Context, partner domain.Partner) (*domain.SyncProgress, error) {
	query := `SELECT ` + syncProgressColumns + ` FROM background_sync_progress
	WHERE partner = ? AND status IN (?, ?) ORDER BY started_at DESC LIMIT 1`

	var progress domain.SyncProgress
	err := r.db.GetContext(ctx, &progress, r.db.Rebind(query),
		partner, domain.SyncStatusPending, domain.SyncStatusInProgress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select active sync progress failed: %w", err)
	}
	return &progress, nil
}

func (r *syncProgressRepository) List(ctx context.Context, limit int) ([]domain.SyncProgress, error) {
	query := `SELECT ` + syncProgressColumns + ` FROM background_sync_progress ORDER BY started_at DESC LIMIT ?`

	var list []domain.SyncProgress
	if err := r.db.SelectContext(ctx, &list, r.db.Rebind(query), limit); err != nil {
		return nil, fmt.Errorf("select sync progress list failed: %w", err)
	}
	return list, nil
}

func (r *syncProgressRepository) MarkInProgress(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	const query = `
	UPDATE background_sync_progress SET status = ?, started_at = ?, updated_at = ?
	WHERE id = ? AND status = ?;
	`
	return r.exec(ctx, query, domain.SyncStatusInProgress, startedAt, startedAt, id, domain.SyncStatusPending)
}

func (r *syncProgressRepository) SetTotalCities(ctx context.Context, id uuid.UUID, total int) error {
	const query = `
	UPDATE background_sync_progress SET total_cities = ?, updated_at = ?
	WHERE id = ? AND status = ?;
	`
	return r.exec(ctx, query, total, time.Now().UTC(), id, domain.SyncStatusInProgress)
}

// AddTotalRegions grows the region total by count before the regions of
// cityName are written.
func (r *syncProgressRepository) AddTotalRegions(ctx context.Context, id uuid.UUID, cityName string, count int) error {
	const query = `
	UPDATE background_sync_progress SET total_regions = total_regions + ?, current_city_name = ?, updated_at = ?
	WHERE id = ? AND status = ?;
	`
	return r.exec(ctx, query, count, cityName, time.Now().UTC(), id, domain.SyncStatusInProgress)
}

// AddCompletedRegions never lets completed_regions pass total_regions.
func (r *syncProgressRepository) AddCompletedRegions(ctx context.Context, id uuid.UUID, count int) error {
	const query = `
	UPDATE background_sync_progress
	SET completed_regions = CASE WHEN completed_regions + ? > total_regions THEN total_regions ELSE completed_regions + ? END,
	updated_at = ?
	WHERE id = ? AND status = ?;
	`
	return r.exec(ctx, query, count, count, time.Now().UTC(), id, domain.SyncStatusInProgress)
}

func (r *syncProgressRepository) AddCompletedCity(ctx context.Context, id uuid.UUID) error {
	const query = `
	UPDATE background_sync_progress
	SET completed_cities = CASE WHEN completed_cities < total_cities THEN completed_cities + 1 ELSE completed_cities END,
	updated_at = ?
	WHERE id = ? AND status = ?;
	`
	return r.exec(ctx, query, time.Now().UTC(), id, domain.SyncStatusInProgress)
}

// Finish moves an active run to a terminal status. A run that already
// finished is left alone and ErrInvalidTransition is returned.
func (r *syncProgressRepository) Finish(ctx context.Context, id uuid.UUID, status domain.SyncStatus, errorMessage *string, completedAt time.Time) error {
	if !status.IsTerminal() {
		return domain.ErrInvalidTransition
	}

	const query = `
	UPDATE background_sync_progress SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
	WHERE id = ? AND status IN (?, ?);
	`
	err := r.exec(ctx, query, status, errorMessage, completedAt, completedAt, id,
		domain.SyncStatusPending, domain.SyncStatusInProgress)
	if errors.Is(err, domain.ErrNoRowsAffected) {
		return domain.ErrInvalidTransition
	}
	return err
}

func (r *syncProgressRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update sync progress failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected failed: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNoRowsAffected
	}
	return nil
}
