package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/db"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/pkg/logger"
)

type regionRepository struct {
	db      *sqlx.DB
	dialect db.Dialect
}

func newRegionRepository(conn *sqlx.DB) *regionRepository {
	return &regionRepository{
		db:      conn,
		dialect: db.DialectOf(conn),
	}
}

// UpsertBatch writes rows in one transaction. A row that fails is rolled back
// to its savepoint, logged and skipped, the rest of the batch still commits.
// It returns the number of rows written.
func (r *regionRepository) UpsertBatch(ctx context.Context, partner domain.Partner, syncID uuid.UUID, rows []domain.RegionUpsert) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	regionQuery := r.db.Rebind(regionUpsert.sql(r.dialect))
	mappingQuery := r.db.Rebind(regionMappingUpsert.sql(r.dialect))
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin region batch failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for i := range rows {
		row := &rows[i]
		if row.Region.CreatedAt.IsZero() {
			row.Region.CreatedAt = now
		}
		row.Region.UpdatedAt = now
		row.Region.IsActive = true

		if _, err := tx.ExecContext(ctx, "SAVEPOINT region_row"); err != nil {
			return written, fmt.Errorf("savepoint failed: %w", err)
		}

		err := r.upsertRow(ctx, tx, regionQuery, mappingQuery, partner, syncID, row, now)
		if err != nil {
			logger.Warn("region upsert skipped",
				zap.String("partner", partner.String()),
				zap.String("external_id", row.ExternalID),
				zap.String("name", row.Region.Name),
				zap.Error(err),
			)
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT region_row"); rbErr != nil {
				return written, fmt.Errorf("rollback to savepoint failed: %w", rbErr)
			}
			continue
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT region_row"); err != nil {
			return written, fmt.Errorf("release savepoint failed: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit region batch failed: %w", err)
	}

	return written, nil
}

func (r *regionRepository) upsertRow(ctx context.Context, tx *sqlx.Tx, regionQuery, mappingQuery string, partner domain.Partner, syncID uuid.UUID, row *domain.RegionUpsert, now time.Time) error {
	region := &row.Region
	if _, err := tx.ExecContext(ctx, regionQuery,
		region.ID, region.CityID, region.Name, region.IsActive, region.CreatedAt, region.UpdatedAt); err != nil {
		return fmt.Errorf("db upsert region: %w", err)
	}

	if _, err := tx.ExecContext(ctx, mappingQuery,
		region.ID, partner, row.ExternalID, row.ExternalCityID, true, syncID, now); err != nil {
		return fmt.Errorf("db upsert region mapping: %w", err)
	}

	return nil
}

func (r *regionRepository) ListActive(ctx context.Context, limit, offset int) ([]domain.Region, error) {
	const query = `
	SELECT id, city_id, name, is_active, created_at, updated_at FROM regions_master
	WHERE is_active = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?;
	`
	var regions []domain.Region
	if err := r.db.SelectContext(ctx, &regions, r.db.Rebind(query), true, limit, offset); err != nil {
		return nil, fmt.Errorf("select active regions failed: %w", err)
	}

	if err := r.attachPartnerIDs(ctx, regions); err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *regionRepository) ListByCity(ctx context.Context, cityID uuid.UUID) ([]domain.Region, error) {
	const query = `
	SELECT id, city_id, name, is_active, created_at, updated_at FROM regions_master
	WHERE city_id = ? AND is_active = ? ORDER BY name ASC;
	`
	var regions []domain.Region
	if err := r.db.SelectContext(ctx, &regions, r.db.Rebind(query), cityID, true); err != nil {
		return nil, fmt.Errorf("select regions by city failed: %w", err)
	}

	if err := r.attachPartnerIDs(ctx, regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// ListByPartnerCity returns active regions of the canonical city partner
// knows as externalCityID.
func (r *regionRepository) ListByPartnerCity(ctx context.Context, partner domain.Partner, externalCityID string) ([]domain.Region, error) {
	const query = `
	SELECT r.id, r.city_id, r.name, r.is_active, r.created_at, r.updated_at FROM regions_master r
	JOIN city_delivery_mappings m ON m.city_id = r.city_id
	WHERE m.partner = ? AND m.external_id = ? AND m.is_active = ? AND r.is_active = ?
	ORDER BY r.name ASC;
	`
	var regions []domain.Region
	if err := r.db.SelectContext(ctx, &regions, r.db.Rebind(query), partner, externalCityID, true, true); err != nil {
		return nil, fmt.Errorf("select regions by partner city failed: %w", err)
	}

	if err := r.attachPartnerIDs(ctx, regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// MappingsByPartner returns canonical region ids keyed by domain.RegionKey.
func (r *regionRepository) MappingsByPartner(ctx context.Context, partner domain.Partner) (map[string]uuid.UUID, error) {
	const query = `
	SELECT external_city_id, external_id, region_id FROM region_delivery_mappings WHERE partner = ?;
	`
	var rows []struct {
		ExternalCityID string    `db:"external_city_id"`
		ExternalID     string    `db:"external_id"`
		RegionID       uuid.UUID `db:"region_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), partner); err != nil {
		return nil, fmt.Errorf("select region mappings by partner failed: %w", err)
	}

	out := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		out[domain.RegionKey(row.ExternalCityID, row.ExternalID)] = row.RegionID
	}
	return out, nil
}

// DeactivateStale turns off the partner's mappings of regions in cityID that
// were not touched by syncID, then every region of the city left without an
// active mapping.
func (r *regionRepository) DeactivateStale(ctx context.Context, partner domain.Partner, cityID uuid.UUID, syncID uuid.UUID) (int64, error) {
	const mappingsQuery = `
	UPDATE region_delivery_mappings SET is_active = ?, updated_at = ?
	WHERE partner = ? AND sync_id <> ? AND is_active = ?
	AND region_id IN (SELECT id FROM regions_master WHERE city_id = ?);
	`
	const regionsQuery = `
	UPDATE regions_master SET is_active = ?, updated_at = ?
	WHERE city_id = ? AND is_active = ? AND NOT EXISTS (
		SELECT 1 FROM region_delivery_mappings m WHERE m.region_id = regions_master.id AND m.is_active = ?
	);
	`
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin region deactivation failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(mappingsQuery), false, now, partner, syncID, true, cityID); err != nil {
		return 0, fmt.Errorf("deactivate stale region mappings failed: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.db.Rebind(regionsQuery), false, now, cityID, true, true)
	if err != nil {
		return 0, fmt.Errorf("deactivate unmapped regions failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit region deactivation failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected failed: %w", err)
	}
	return rowsAffected, nil
}

func (r *regionRepository) attachPartnerIDs(ctx context.Context, regions []domain.Region) error {
	if len(regions) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(regions))
	for _, region := range regions {
		ids = append(ids, region.ID)
	}

	query, args, err := sqlx.In(`
	SELECT region_id AS entity_id, partner, external_id FROM region_delivery_mappings
	WHERE is_active = ? AND region_id IN (?);
	`, true, ids)
	if err != nil {
		return fmt.Errorf("build region mappings query failed: %w", err)
	}

	var rows []partnerIDRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("select region mappings failed: %w", err)
	}

	grouped := groupPartnerIDs(rows)
	for i := range regions {
		regions[i].PartnerIDs = grouped[regions[i].ID]
	}
	return nil
}
