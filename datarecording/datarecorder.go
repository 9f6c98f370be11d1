// Package datarecording stores simulation records in a SQLite database.
//
// Each table is described by a sample struct whose exported fields become
// columns. Entries are buffered and written in batches inside a transaction.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

const defaultBatchSize = 100000

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns follow the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables created by the recorder.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and releases the database.
	Close() error
}

// New creates a DataRecorder that writes to <path>.sqlite3. An empty path
// generates a unique file name. The recorder is closed at exit if the
// program ends through atexit.
func New(path string) DataRecorder {
	if path == "" {
		path = "portmux_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	r := NewWithDB(db)
	atexit.Register(func() { _ = r.Close() })

	return r
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	return &sqliteRecorder{
		db:        db,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*tableSchema),
	}
}

type tableSchema struct {
	name       string
	entryType  reflect.Type
	columns    []string
	insertStmt string
	pending    []any
}

type sqliteRecorder struct {
	db         *sql.DB
	tables     map[string]*tableSchema
	order      []string
	batchSize  int
	numPending int
	closed     bool
}

func columnType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

func newTableSchema(name string, sample any) (*tableSchema, []string, error) {
	t := reflect.TypeOf(sample)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, nil, errors.Errorf("entry of type %v is not a struct", t)
	}

	columns := structs.Names(sample)
	defs := make([]string, 0, len(columns))

	for _, col := range columns {
		field, _ := t.FieldByName(col)

		sqlType, ok := columnType(field.Type.Kind())
		if !ok {
			return nil, nil, errors.Errorf(
				"field %s of type %s cannot be recorded", col, field.Type)
		}

		defs = append(defs, col+" "+sqlType)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	return &tableSchema{
		name:      name,
		entryType: t,
		columns:   columns,
		insertStmt: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			name, strings.Join(columns, ", "), placeholders),
	}, defs, nil
}

func (r *sqliteRecorder) CreateTable(tableName string, sampleEntry any) {
	if _, exists := r.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	schema, defs, err := newTableSchema(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	query := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);",
		tableName, strings.Join(defs, ",\n\t"))
	if _, err := r.db.Exec(query); err != nil {
		panic(errors.Wrapf(err, "create table %s", tableName))
	}

	r.tables[tableName] = schema
	r.order = append(r.order, tableName)
}

func (r *sqliteRecorder) InsertData(tableName string, entry any) {
	schema, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != schema.entryType {
		panic(fmt.Sprintf("entry of type %s does not fit table %s of type %s",
			reflect.TypeOf(entry), tableName, schema.entryType))
	}

	schema.pending = append(schema.pending, entry)
	r.numPending++

	if r.numPending >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) ListTables() []string {
	return append([]string(nil), r.order...)
}

// Flush panics if the database rejects the batch.
func (r *sqliteRecorder) Flush() {
	if r.numPending == 0 {
		return
	}

	if err := r.writePending(); err != nil {
		panic(err)
	}
}

func (r *sqliteRecorder) writePending() error {
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	for _, name := range r.order {
		schema := r.tables[name]
		if err := writeTable(tx, schema); err != nil {
			return multierror.Append(err, tx.Rollback())
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}

	for _, schema := range r.tables {
		schema.pending = nil
	}

	r.numPending = 0

	return nil
}

func writeTable(tx *sql.Tx, schema *tableSchema) error {
	if len(schema.pending) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(schema.insertStmt)
	if err != nil {
		return errors.Wrapf(err, "prepare insert into %s", schema.name)
	}
	defer stmt.Close()

	args := make([]any, len(schema.columns))
	for _, entry := range schema.pending {
		v := reflect.ValueOf(entry)
		for i, col := range schema.columns {
			args[i] = v.FieldByName(col).Interface()
		}

		if _, err := stmt.Exec(args...); err != nil {
			return errors.Wrapf(err, "insert into %s", schema.name)
		}
	}

	return nil
}

// Close writes the remaining entries and closes the database. Closing
// twice is a no-op.
func (r *sqliteRecorder) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	var result error

	if r.numPending > 0 {
		if err := r.writePending(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := r.db.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "close database"))
	}

	return result
}
