package vaultstate

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"
)

// NewMemoryStateDB opens a throwaway in-memory ledger for tests and
// the local demo server.
func NewMemoryStateDB() (*StateDB, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	// each pooled connection would otherwise see its own empty :memory: db
	db.SetMaxOpenConns(1)
	st, err := NewStateDB(db)
	if err != nil {
		logger.Fatal(err)
	}
	return st, db
}
