package datarecording

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

// DataReader reads back what a DataRecorder stored.
type DataReader interface {
	// ListTables returns the names of all tables in the database.
	ListTables(ctx context.Context) ([]string, error)

	// Count returns the number of rows in a table. Where holds an optional
	// condition without the "WHERE" keyword.
	Count(ctx context.Context, tableName, where string, args ...any) (int, error)

	// Close closes the reader
	Close() error
}

type sqliteReader struct {
	*sql.DB
}

// NewReader opens a database file for reading.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dbFilename)
	}

	return &sqliteReader{DB: db}, nil
}

// NewReaderWithDB creates a new DataReader with a given database
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{DB: db}
}

func (r *sqliteReader) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "list tables")
		}

		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func (r *sqliteReader) Count(
	ctx context.Context,
	tableName, where string,
	args ...any,
) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)
	if where != "" {
		query += " WHERE " + where
	}

	var count int

	err := r.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", tableName)
	}

	return count, nil
}
