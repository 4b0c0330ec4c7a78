package store

import (
	"sync"

	"github.com/jmoiron/sqlx"
)

// stmtCache caches prepared statements by query string, the same shape as
// the teacher's database.StmtCache, adapted from database/sql.Stmt to
// sqlx.Stmt since the store binds struct fields by name.
type stmtCache struct {
	db *sqlx.DB
	m  sync.Map
}

func newStmtCache(db *sqlx.DB) *stmtCache {
	return &stmtCache{db: db}
}

func (sc *stmtCache) prepare(query string) (*sqlx.Stmt, error) {
	if cached, ok := sc.m.Load(query); ok {
		return cached.(*sqlx.Stmt), nil
	}

	stmt, err := sc.db.Preparex(query)
	if err != nil {
		return nil, err
	}
	sc.m.Store(query, stmt)
	return stmt, nil
}

func (sc *stmtCache) clear() {
	sc.m.Range(func(k, v interface{}) bool {
		_ = v.(*sqlx.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}
