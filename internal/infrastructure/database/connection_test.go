package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/shared/config"
	"kreltrack/internal/shared/logger"
)

func TestOpenSQLiteMemory(t *testing.T) {
	gdb, err := Open(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"}, logger.NewDiscard())
	require.NoError(t, err)
	defer func() { assert.NoError(t, Close(gdb)) }()

	var one int
	require.NoError(t, gdb.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, logger.NewDiscard())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestGetDSN(t *testing.T) {
	mysqlCfg := config.DatabaseConfig{Driver: DriverMySQL, Username: "u", Password: "p", Host: "db", Port: 3306, Database: "rel"}
	assert.Equal(t, "u:p@tcp(db:3306)/rel?charset=utf8mb4&parseTime=True&loc=UTC", mysqlCfg.GetDSN())

	mssqlCfg := config.DatabaseConfig{Driver: DriverSQLServer, Username: "sa", Password: "p", Host: "db", Port: 1433, Database: "rel"}
	assert.Equal(t, "sqlserver://sa:p@db:1433?database=rel", mssqlCfg.GetDSN())

	assert.Equal(t, "kreltrack.db", (&config.DatabaseConfig{}).GetDSN())
}
