package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB 创建已迁移的临时测试数据库
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "oxychat_test_*")
	require.NoError(t, err)

	db, err := OpenDB(&config.DatabaseConfig{Path: filepath.Join(tmpDir, "test.db")})
	require.NoError(t, err)

	_, err = Migrate(db)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
	return db, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	version, err := Migrate(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var journal string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestIsUniqueViolation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.Exec(`INSERT INTO conversations (id, created_at, updated_at) VALUES ('dup', 0, 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO conversations (id, created_at, updated_at) VALUES ('dup', 0, 0)`)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
	assert.False(t, isUniqueViolation(nil))
}
