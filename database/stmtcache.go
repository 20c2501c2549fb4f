package database

import (
	"database/sql"
	"sync"
)

// StmtCache maps a query string to its prepared statement so hot
// ledger queries are only prepared once per process.
type StmtCache struct {
	db *sql.DB
	m  sync.Map
}

func NewStmtCache(db *sql.DB) *StmtCache {
	return &StmtCache{db: db}
}

func (sc *StmtCache) Prepare(query string) (*sql.Stmt, error) {
	cached, _ := sc.m.Load(query)
	if cached == nil {
		stmt, err := sc.db.Prepare(query)
		if err != nil {
			return nil, err
		}
		sc.m.Store(query, stmt)
		cached = stmt
	}
	return cached.(*sql.Stmt), nil
}

// InTx returns the cached statement bound to the given transaction.
// The returned statement lives until the transaction ends.
func (sc *StmtCache) InTx(tx *sql.Tx, query string) (*sql.Stmt, error) {
	stmt, err := sc.Prepare(query)
	if err != nil {
		return nil, err
	}
	return tx.Stmt(stmt), nil
}

func (sc *StmtCache) Clear() {
	sc.m.Range(func(k, v interface{}) bool {
		_ = v.(*sql.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}
