package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add export runs", "add_export_runs"},
		{"Add-Export-Runs", "add_export_runs"},
		{"ADD_EXPORT_RUNS", "add_export_runs"},
		{"add__export__runs", "add_export_runs"},
		{"Add Runs 123", "add_runs_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeMigrationFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("-- test"), 0644))
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("starts at version one", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "create ec export runs", "History of shop exports")
		require.NoError(t, err)

		assert.Equal(t, "000001", mf.Version)
		assert.Equal(t, filepath.Join(dir, "000001_create_ec_export_runs.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000001_create_ec_export_runs.down.sql"), mf.DownPath)

		upContent, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(upContent), "create ec export runs")
		assert.Contains(t, string(upContent), "History of shop exports")

		downContent, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(downContent), "Rollback")
	})

	t.Run("continues after the highest existing version", func(t *testing.T) {
		dir := t.TempDir()
		writeMigrationFiles(t, dir,
			"000001_init.up.sql", "000001_init.down.sql",
			"000007_add_index.up.sql", "000007_add_index.down.sql",
			"legacy_notes.up.sql",
		)

		mf, err := CreateMigration(dir, "add column", "")
		require.NoError(t, err)
		assert.Equal(t, "000008", mf.Version)
		assert.True(t, strings.HasSuffix(mf.UpPath, "000008_add_column.up.sql"))
	})

	t.Run("creates missing directories", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(nested, "test", "test migration")
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects names without usable characters", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		require.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("returns sorted up migrations", func(t *testing.T) {
		dir := t.TempDir()
		writeMigrationFiles(t, dir,
			"000002_add_index.up.sql", "000002_add_index.down.sql",
			"000001_init.up.sql", "000001_init.down.sql",
			"README.md", ".gitkeep",
		)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0755))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init", "000002_add_index"}, migrations)
	})

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := ListMigrations(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("missing directory", func(t *testing.T) {
		migrations, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
