package db

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host:     "db.internal",
		Port:     "3306",
		User:     "recorder",
		Password: "p@ss:word",
		Database: "netif_recorder",
	}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)

	assert.Equal(t, "recorder", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3306", parsed.Addr)
	assert.Equal(t, "netif_recorder", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.True(t, parsed.ClientFoundRows)
}
