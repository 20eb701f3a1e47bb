package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgresStore connects to PostgreSQL and prepares the schema for the
// given order.
func NewPostgresStore(dsn string, order int) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s, err := newSQLStore(db, postgresDialect, order)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
