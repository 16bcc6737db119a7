package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type columnType int

const (
	colUUID columnType = iota
	colString
	colKey
	colText
	colBool
	colInt
	colFloat
	colTime
)

var columnTypes = map[Dialect]map[columnType]string{
	DialectMySQL: {
		colUUID:   "CHAR(36)",
		colString: "VARCHAR(255)",
		colKey:    "VARCHAR(64)",
		colText:   "TEXT",
		colBool:   "BOOLEAN",
		colInt:    "INT",
		colFloat:  "DOUBLE PRECISION",
		colTime:   "DATETIME(6)",
	},
	DialectPostgres: {
		colUUID:   "UUID",
		colString: "VARCHAR(255)",
		colKey:    "VARCHAR(64)",
		colText:   "TEXT",
		colBool:   "BOOLEAN",
		colInt:    "INTEGER",
		colFloat:  "DOUBLE PRECISION",
		colTime:   "TIMESTAMPTZ",
	},
	DialectSQLite: {
		colUUID:   "CHAR(36)",
		colString: "VARCHAR(255)",
		colKey:    "VARCHAR(64)",
		colText:   "TEXT",
		colBool:   "BOOLEAN",
		colInt:    "INTEGER",
		colFloat:  "DOUBLE PRECISION",
		colTime:   "DATETIME",
	},
}

type column struct {
	name     string
	typ      columnType
	nullable bool
	def      string
}

type index struct {
	name    string
	columns []string
}

type table struct {
	name        string
	columns     []column
	constraints []string
	indexes     []index
}

var schema = []table{
	{
		name: "cities_master",
		columns: []column{
			{name: "id", typ: colUUID},
			{name: "name", typ: colString},
			{name: "name_ar", typ: colString, nullable: true},
			{name: "name_en", typ: colString, nullable: true},
			{name: "is_active", typ: colBool, def: "TRUE"},
			{name: "created_at", typ: colTime},
			{name: "updated_at", typ: colTime},
		},
		constraints: []string{"PRIMARY KEY (id)"},
		indexes:     []index{{name: "idx_cities_master_name", columns: []string{"name"}}},
	},
	{
		name: "regions_master",
		columns: []column{
			{name: "id", typ: colUUID},
			{name: "city_id", typ: colUUID},
			{name: "name", typ: colString},
			{name: "is_active", typ: colBool, def: "TRUE"},
			{name: "created_at", typ: colTime},
			{name: "updated_at", typ: colTime},
		},
		constraints: []string{
			"PRIMARY KEY (id)",
			"FOREIGN KEY (city_id) REFERENCES cities_master (id)",
		},
		indexes: []index{
			{name: "idx_regions_master_city", columns: []string{"city_id"}},
			{name: "idx_regions_master_name", columns: []string{"name"}},
		},
	},
	{
		name: "city_delivery_mappings",
		columns: []column{
			{name: "city_id", typ: colUUID},
			{name: "partner", typ: colKey},
			{name: "external_id", typ: colKey},
			{name: "is_active", typ: colBool, def: "TRUE"},
			{name: "sync_id", typ: colUUID},
			{name: "updated_at", typ: colTime},
		},
		constraints: []string{
			"PRIMARY KEY (city_id, partner)",
			"UNIQUE (partner, external_id)",
			"FOREIGN KEY (city_id) REFERENCES cities_master (id)",
		},
	},
	{
		name: "region_delivery_mappings",
		columns: []column{
			{name: "region_id", typ: colUUID},
			{name: "partner", typ: colKey},
			{name: "external_id", typ: colKey},
			{name: "external_city_id", typ: colKey},
			{name: "is_active", typ: colBool, def: "TRUE"},
			{name: "sync_id", typ: colUUID},
			{name: "updated_at", typ: colTime},
		},
		constraints: []string{
			"PRIMARY KEY (region_id, partner)",
			"UNIQUE (partner, external_city_id, external_id)",
			"FOREIGN KEY (region_id) REFERENCES regions_master (id)",
		},
	},
	{
		name: "background_sync_progress",
		columns: []column{
			{name: "id", typ: colUUID},
			{name: "triggered_by", typ: colString},
			{name: "partner", typ: colString},
			{name: "sync_type", typ: colString},
			{name: "status", typ: colString},
			{name: "total_cities", typ: colInt, def: "0"},
			{name: "completed_cities", typ: colInt, def: "0"},
			{name: "total_regions", typ: colInt, def: "0"},
			{name: "completed_regions", typ: colInt, def: "0"},
			{name: "current_city_name", typ: colString, def: "''"},
			{name: "started_at", typ: colTime},
			{name: "updated_at", typ: colTime},
			{name: "completed_at", typ: colTime, nullable: true},
			{name: "error_message", typ: colText, nullable: true},
		},
		constraints: []string{"PRIMARY KEY (id)"},
		indexes:     []index{{name: "idx_sync_progress_partner_status", columns: []string{"partner", "status"}}},
	},
	{
		name: "location_sync_logs",
		columns: []column{
			{name: "id", typ: colUUID},
			{name: "progress_id", typ: colUUID},
			{name: "partner", typ: colString},
			{name: "triggered_by", typ: colString},
			{name: "started_at", typ: colTime},
			{name: "ended_at", typ: colTime},
			{name: "cities_count", typ: colInt},
			{name: "regions_count", typ: colInt},
			{name: "success", typ: colBool},
			{name: "error_message", typ: colText, nullable: true},
			{name: "duration_seconds", typ: colFloat},
		},
		constraints: []string{"PRIMARY KEY (id)"},
		indexes:     []index{{name: "idx_sync_logs_started", columns: []string{"started_at"}}},
	},
}

// Migrate creates the location tables when they do not exist yet.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	dialect := DialectOf(conn)
	if _, ok := columnTypes[dialect]; !ok {
		return fmt.Errorf("unsupported db dialect %q", dialect)
	}

	for _, t := range schema {
		for _, stmt := range t.statements(dialect) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate table %s failed: %w", t.name, err)
			}
		}
	}

	return nil
}

func (t table) statements(dialect Dialect) []string {
	types := columnTypes[dialect]

	defs := make([]string, 0, len(t.columns)+len(t.constraints)+len(t.indexes))
	for _, c := range t.columns {
		def := c.name + " " + types[c.typ]
		if !c.nullable {
			def += " NOT NULL"
		}
		if c.def != "" {
			def += " DEFAULT " + c.def
		}
		defs = append(defs, def)
	}
	defs = append(defs, t.constraints...)

	// mysql has no CREATE INDEX IF NOT EXISTS, indexes go inline there
	var separate []string
	for _, idx := range t.indexes {
		cols := strings.Join(idx.columns, ", ")
		if dialect == DialectMySQL {
			defs = append(defs, fmt.Sprintf("INDEX %s (%s)", idx.name, cols))
			continue
		}
		separate = append(separate, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, t.name, cols))
	}

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.name, strings.Join(defs, ",\n\t"))
	if dialect == DialectMySQL {
		create += " DEFAULT CHARSET=utf8mb4"
	}

	return append([]string{create}, separate...)
}
