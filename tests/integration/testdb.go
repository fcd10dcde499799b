// Package integration runs the persistence adapters against real
// PostgreSQL, MongoDB and Redis containers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/merchportal/backend/internal/infrastructure/config"
	"github.com/merchportal/backend/internal/infrastructure/logger"
	"github.com/merchportal/backend/internal/infrastructure/migration"
	"github.com/merchportal/backend/internal/infrastructure/persistence"
	"github.com/merchportal/backend/migrations"
	"github.com/merchportal/backend/tests/testutil"
)

const (
	testDBName     = "merchportal_test"
	testDBUser     = "postgres"
	testDBPassword = "postgres"
)

// TestDB is the export history database migrated inside a throwaway container
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	t     *testing.T
}

// NewTestDB starts PostgreSQL, opens it the way the server does and applies
// the embedded migrations. Everything is torn down when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	testutil.SkipIfShort(t)

	ctx := testutil.ContextWithTimeout(t, 2*time.Minute)
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	database, err := persistence.NewDatabase(&config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            testDBUser,
		Password:        testDBPassword,
		DBName:          testDBName,
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
	}, persistence.WithGormLogger(logger.NewGormLogger(zaptest.NewLogger(t), level, logger.WithSQL(true))))
	require.NoError(t, err, "connect to postgres")
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)

	migrator, err := migration.NewFromFS(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err, "create migrator")
	require.NoError(t, migrator.Up(), "apply migrations")

	return &TestDB{DB: database.DB, SqlDB: sqlDB, t: t}
}

// CleanTables empties the export history between subtests
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE TABLE ec_export_runs").Error)
}
