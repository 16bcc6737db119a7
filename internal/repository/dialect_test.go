package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tajer-app/locations/internal/db"
)

func TestUpsertSQL(t *testing.T) {
	u := upsert{
		table:    "t",
		columns:  []string{"id", "name", "alias"},
		conflict: []string{"id"},
		update:   []string{"name"},
		keep:     []string{"alias"},
	}

	assert.Equal(t,
		"INSERT INTO t (id, name, alias) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name), alias = COALESCE(VALUES(alias), alias)",
		u.sql(db.DialectMySQL))
	assert.Equal(t,
		"INSERT INTO t (id, name, alias) VALUES (?, ?, ?) ON CONFLICT (id) DO UPDATE SET name = excluded.name, alias = COALESCE(excluded.alias, t.alias)",
		u.sql(db.DialectPostgres))
}
