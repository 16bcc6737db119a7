package repository

import (
	"fmt"
	"strings"

	"github.com/tajer-app/locations/internal/db"
)

// upsert describes an insert-or-update keyed by conflict columns. Columns in
// keep are only overwritten with non-null values.
type upsert struct {
	table    string
	columns  []string
	conflict []string
	update   []string
	keep     []string
}

func (u upsert) sql(dialect db.Dialect) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(u.columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", u.table, strings.Join(u.columns, ", "), placeholders)

	sets := make([]string, 0, len(u.update)+len(u.keep))
	for _, col := range u.update {
		if dialect == db.DialectMySQL {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", col, col))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	for _, col := range u.keep {
		if dialect == db.DialectMySQL {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(VALUES(%s), %s)", col, col, col))
		} else {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(excluded.%s, %s.%s)", col, col, u.table, col))
		}
	}

	if dialect == db.DialectMySQL {
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", insert, strings.Join(u.conflict, ", "), strings.Join(sets, ", "))
}

var (
	cityUpsert = upsert{
		table:    "cities_master",
		columns:  []string{"id", "name", "name_ar", "name_en", "is_active", "created_at", "updated_at"},
		conflict: []string{"id"},
		update:   []string{"name", "is_active", "updated_at"},
		keep:     []string{"name_ar", "name_en"},
	}
	cityMappingUpsert = upsert{
		table:    "city_delivery_mappings",
		columns:  []string{"city_id", "partner", "external_id", "is_active", "sync_id", "updated_at"},
		conflict: []string{"city_id", "partner"},
		update:   []string{"external_id", "is_active", "sync_id", "updated_at"},
	}
	regionUpsert = upsert{
		table:    "regions_master",
		columns:  []string{"id", "city_id", "name", "is_active", "created_at", "updated_at"},
		conflict: []string{"id"},
		update:   []string{"city_id", "name", "is_active", "updated_at"},
	}
	regionMappingUpsert = upsert{
		table:    "region_delivery_mappings",
		columns:  []string{"region_id", "partner", "external_id", "external_city_id", "is_active", "sync_id", "updated_at"},
		conflict: []string{"region_id", "partner"},
		update:   []string{"external_id", "external_city_id", "is_active", "sync_id", "updated_at"},
	}
)
