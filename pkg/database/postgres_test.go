package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := Config{
		Host:     "db",
		Port:     "5433",
		User:     "ledger",
		Password: "secret",
		DBName:   "ledgerdb",
		SSLMode:  "require",
	}
	assert.Equal(t, "host=db port=5433 user=ledger password=secret dbname=ledgerdb sslmode=require", cfg.DSN())
}
