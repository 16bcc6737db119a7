package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tajer-app/locations/internal/db"
	"github.com/tajer-app/locations/internal/domain"
)

type cityRepository struct {
	db      *sqlx.DB
	dialect db.Dialect
}

func newCityRepository(conn *sqlx.DB) *cityRepository {
	return &cityRepository{
		db:      conn,
		dialect: db.DialectOf(conn),
	}
}

// Upsert writes the canonical city and its mapping for partner in one
// transaction. Both writes are keyed, so repeating them is harmless.
func (r *cityRepository) Upsert(ctx context.Context, city *domain.City, partner domain.Partner, externalID string, syncID uuid.UUID) error {
	now := time.Now().UTC()
	if city.CreatedAt.IsZero() {
		city.CreatedAt = now
	}
	city.UpdatedAt = now
	city.IsActive = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin city upsert failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.db.Rebind(cityUpsert.sql(r.dialect)),
		city.ID, city.Name, city.NameAr, city.NameEn, city.IsActive, city.CreatedAt, city.UpdatedAt)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("db upsert city: %w", err)
	}

	_, err = tx.ExecContext(ctx, r.db.Rebind(cityMappingUpsert.sql(r.dialect)),
		city.ID, partner, externalID, true, syncID, now)
	if err != nil {
		return fmt.Errorf("db upsert city mapping: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit city upsert failed: %w", err)
	}

	if city.PartnerIDs == nil {
		city.PartnerIDs = make(domain.PartnerIDs)
	}
	city.PartnerIDs[partner] = externalID

	return nil
}

func (r *cityRepository) GetOneByID(ctx context.Context, id uuid.UUID) (*domain.City, error) {
	const query = `
	SELECT id, name, name_ar, name_en, is_active, created_at, updated_at FROM cities_master WHERE id = ?;
	`
	var city domain.City
	if err := r.db.GetContext(ctx, &city, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select from city by id failed: %w", err)
	}

	ids, err := r.partnerIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	city.PartnerIDs = ids[id]

	return &city, nil
}

// FindByName returns the canonical city with the given name, compared case
// insensitively.
func (r *cityRepository) FindByName(ctx context.Context, name string) (*domain.City, error) {
	const query = `
	SELECT id, name, name_ar, name_en, is_active, created_at, updated_at FROM cities_master
	WHERE LOWER(name) = ? OR LOWER(name_ar) = ? OR LOWER(name_en) = ?
	ORDER BY created_at ASC LIMIT 1;
	`
	lower := strings.ToLower(strings.TrimSpace(name))

	var city domain.City
	if err := r.db.GetContext(ctx, &city, r.db.Rebind(query), lower, lower, lower); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select from city by name failed: %w", err)
	}
	return &city, nil
}

func (r *cityRepository) ListActive(ctx context.Context) ([]domain.City, error) {
	const query = `
	SELECT id, name, name_ar, name_en, is_active, created_at, updated_at FROM cities_master
	WHERE is_active = ? ORDER BY name ASC;
	`
	var cities []domain.City
	if err := r.db.SelectContext(ctx, &cities, r.db.Rebind(query), true); err != nil {
		return nil, fmt.Errorf("select active cities failed: %w", err)
	}

	const mappingsQuery = `
	SELECT city_id AS entity_id, partner, external_id FROM city_delivery_mappings WHERE is_active = ?;
	`
	var rows []partnerIDRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(mappingsQuery), true); err != nil {
		return nil, fmt.Errorf("select city mappings failed: %w", err)
	}

	grouped := groupPartnerIDs(rows)
	for i := range cities {
		cities[i].PartnerIDs = grouped[cities[i].ID]
	}

	return cities, nil
}

func (r *cityRepository) MappingsByPartner(ctx context.Context, partner domain.Partner) (map[string]uuid.UUID, error) {
	const query = `
	SELECT external_id, city_id AS entity_id FROM city_delivery_mappings WHERE partner = ?;
	`
	var rows []externalIDRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), partner); err != nil {
		return nil, fmt.Errorf("select city mappings by partner failed: %w", err)
	}
	return toExternalIDMap(rows), nil
}

// DeactivateStale turns off the partner's mappings not touched by syncID and
// then every city left without an active mapping. It returns the number of
// deactivated cities.
func (r *cityRepository) DeactivateStale(ctx context.Context, partner domain.Partner, syncID uuid.UUID) (int64, error) {
	const mappingsQuery = `
	UPDATE city_delivery_mappings SET is_active = ?, updated_at = ?
	WHERE partner = ? AND sync_id <> ? AND is_active = ?;
	`
	const citiesQuery = `
	UPDATE cities_master SET is_active = ?, updated_at = ?
	WHERE is_active = ? AND NOT EXISTS (
		SELECT 1 FROM city_delivery_mappings m WHERE m.city_id = cities_master.id AND m.is_active = ?
	);
	`
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin city deactivation failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(mappingsQuery), false, now, partner, syncID, true); err != nil {
		return 0, fmt.Errorf("deactivate stale city mappings failed: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.db.Rebind(citiesQuery), false, now, true, true)
	if err != nil {
		return 0, fmt.Errorf("deactivate unmapped cities failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit city deactivation failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected failed: %w", err)
	}
	return rowsAffected, nil
}

func (r *cityRepository) partnerIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PartnerIDs, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]domain.PartnerIDs{}, nil
	}

	query, args, err := sqlx.In(`
	SELECT city_id AS entity_id, partner, external_id FROM city_delivery_mappings
	WHERE is_active = ? AND city_id IN (?);
	`, true, ids)
	if err != nil {
		return nil, fmt.Errorf("build city mappings query failed: %w", err)
	}

	var rows []partnerIDRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select city mappings failed: %w", err)
	}
	return groupPartnerIDs(rows), nil
}
