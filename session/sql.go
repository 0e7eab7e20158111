package session

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// sessionEntry is one persisted key/value pair.
type sessionEntry struct {
	bun.BaseModel `bun:"table:session_entries,alias:se"`

	Name  string `bun:"name,pk"`
	Value []byte `bun:"value"`
}

// SQLBackend persists session entries in a single table through bun.
type SQLBackend struct {
	db *bun.DB
}

// NewSQLBackend wraps an existing bun database.
func NewSQLBackend(db *bun.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

// OpenSQLite opens a sqlite database at dsn and migrates the session table.
// Use "file::memory:?cache=shared" for an in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLBackend, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	return openSQL(ctx, bun.NewDB(sqldb, sqlitedialect.New()))
}

// OpenPostgres opens a postgres database at dsn and migrates the session table.
func OpenPostgres(ctx context.Context, dsn string) (*SQLBackend, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open postgres: %w", err)
	}

	return openSQL(ctx, bun.NewDB(sqldb, pgdialect.New()))
}

func openSQL(ctx context.Context, db *bun.DB) (*SQLBackend, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: ping: %w", err)
	}

	backend := NewSQLBackend(db)
	if err := backend.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

// Migrate creates the session table if it does not exist.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*sessionEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

func (b *SQLBackend) Load(ctx context.Context) (map[string][]byte, error) {
	var rows []sessionEntry
	if err := b.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	return out, nil
}

func (b *SQLBackend) Save(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]sessionEntry, 0, len(entries))
	for name, value := range entries {
		rows = append(rows, sessionEntry{Name: name, Value: value})
	}

	_, err := b.db.NewInsert().
		Model(&rows).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (b *SQLBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := b.db.NewDelete().
		Model((*sessionEntry)(nil)).
		Where("name IN (?)", bun.In(keys)).
		Exec(ctx)
	return err
}

// Close closes the underlying database.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
