// Package store provides access to the SQLite employee database.
//
// The database file and its schema are owned by the application that
// created it; this package never creates or migrates tables. Connections are
// not kept between calls: every operation acquires its own connection and
// returns it on completion.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	// sqlite driver, registers as "sqlite".
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used for the store.
const DriverName = "sqlite"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does not exist.
	ErrDatabaseNotFound = errors.New("database file not found")
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
)

// Store wraps the employee database.
type Store struct {
	db *sql.DB
}

// Open opens an existing SQLite database at the given path.
// A missing file is an error; the store never creates databases.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}

	db, err := sql.Open(DriverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return New(db), nil
}

// dsn builds a SQLite URI for path. The path is escaped so '?', '#' and '%'
// in file names are not read as URI syntax.
func dsn(path string) string {
	query := url.Values{"_pragma": {"busy_timeout(5000)"}}
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + query.Encode()
}

// FormatTime renders a DATE or DATETIME value the way SQLite stores it as
// text: a bare date at midnight, date and time otherwise.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

// New wraps an already opened database handle.
// Idle connections are disabled so no connection outlives the call that
// acquired it.
func New(db *sql.DB) *Store {
	db.SetMaxIdleConns(0)
	return &Store{db: db}
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Conn acquires a dedicated connection. Callers must Close it.
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) {
	return s.db.Conn(ctx)
}

// Column describes a single table column as reported by SQLite.
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"notnull"`
	PK      bool   `json:"pk"`
}

// ListTables returns user table names in the order SQLite reports them.
// Internal sqlite_* tables are excluded.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return queryNames(ctx, conn, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
}

// Schema introspects every table except sqlite_sequence and returns its
// columns in declaration order. It is read live on every call.
func (s *Store) Schema(ctx context.Context) (map[string][]Column, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tables, err := queryNames(ctx, conn, "SELECT name FROM sqlite_master WHERE type='table' AND name != 'sqlite_sequence'")
	if err != nil {
		return nil, err
	}

	schema := make(map[string][]Column, len(tables))
	for _, table := range tables {
		cols, err := tableColumns(ctx, conn, table)
		if err != nil {
			return nil, err
		}
		schema[table] = cols
	}
	return schema, nil
}

func queryNames(ctx context.Context, conn *sql.Conn, query string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) ([]Column, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		var (
			col     Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, err
		}
		col.NotNull = notNull != 0
		col.PK = pk != 0
		cols = append(cols, col)
	}
	return cols, rows.Err()
}
