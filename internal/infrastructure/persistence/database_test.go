package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/retailcore/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		// Pings are monitored, so the open must not consume an expectation
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestNewMockDatabase_OpenIssuesNoPing(t *testing.T) {
	_, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	assert.NoError(t, db.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_PingFailure(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("server closed the connection"))

	assert.Error(t, db.Ping(context.Background()))
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormConfig_StatementPooling(t *testing.T) {
	silent := logger.Default.LogMode(logger.Silent)

	direct := gormConfig(&config.DatabaseConfig{}, silent)
	assert.True(t, direct.PrepareStmt)
	assert.True(t, direct.SkipDefaultTransaction)

	pooled := gormConfig(&config.DatabaseConfig{StatementPooling: true}, silent)
	assert.False(t, pooled.PrepareStmt, "prepared statements do not survive a statement pooler")
}

func TestDialector_SimpleProtocolBehindPooler(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: 6432, User: "retail", DBName: "retail", SSLMode: "disable", StatementPooling: true}

	d, ok := dialector(cfg).(*postgres.Dialector)
	require.True(t, ok)
	assert.True(t, d.PreferSimpleProtocol)
	assert.Equal(t, cfg.DSN(), d.DSN)
}
