package records

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewPostgresStore creates a submissions store on an existing PostgreSQL handle.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect{name: "postgres", numbered: true}}, nil
}

// NewPostgresStoreFromURL opens a PostgreSQL submissions store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}
