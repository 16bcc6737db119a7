package db

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_SQLite(t *testing.T) {
	conn, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(context.Background(), conn))
	// second run is a no-op
	require.NoError(t, Migrate(context.Background(), conn))

	var tables []string
	err = conn.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"background_sync_progress",
		"cities_master",
		"city_delivery_mappings",
		"location_sync_logs",
		"region_delivery_mappings",
		"regions_master",
	}, tables)
}

func TestTableStatements_MySQLInlinesIndexes(t *testing.T) {
	stmts := schema[1].statements(DialectMySQL)

	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "INDEX idx_regions_master_city (city_id)")
	assert.True(t, strings.HasSuffix(stmts[0], "DEFAULT CHARSET=utf8mb4"))
}

func TestTableStatements_PostgresSeparateIndexes(t *testing.T) {
	stmts := schema[1].statements(DialectPostgres)

	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "id UUID NOT NULL")
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_regions_master_city ON regions_master (city_id)", stmts[1])
}

func TestTableStatements_RegionMappingsUniquePerPartnerCity(t *testing.T) {
	var mappings table
	for _, tbl := range schema {
		if tbl.name == "region_delivery_mappings" {
			mappings = tbl
		}
	}

	stmts := mappings.statements(DialectMySQL)
	assert.Contains(t, stmts[0], "UNIQUE (partner, external_city_id, external_id)")
	assert.Contains(t, stmts[0], "external_city_id VARCHAR(64) NOT NULL")
}
