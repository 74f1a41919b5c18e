// Package recording persists simulation results into a SQLite database.
// Entries are buffered in memory and written in batched transactions.
package recording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// SQLite driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// A Recorder stores flat structs as rows of database tables.
type Recorder interface {
	// CreateTable creates a table whose columns are the fields of the
	// sample entry.
	CreateTable(name string, sample any)

	// Insert buffers one entry for the named table.
	Insert(name string, entry any)

	// Tables lists the tables created so far.
	Tables() []string

	// Flush writes all buffered entries to the database.
	Flush()
}

// New creates a Recorder backed by a SQLite file at the given path. An
// empty path picks a unique name. Buffered entries are flushed at exit.
func New(path string) Recorder {
	if path == "" {
		path = "cxlfabric_run_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	return NewWithDB(db)
}

// NewWithDB creates a Recorder on an open database connection.
func NewWithDB(db *sql.DB) Recorder {
	r := &sqliteRecorder{
		db:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(r.Flush)

	return r
}

type table struct {
	entries []any
}

type sqliteRecorder struct {
	db *sql.DB

	tables      map[string]*table
	batchSize   int
	numBuffered int
}

func (r *sqliteRecorder) CreateTable(name string, sample any) {
	mustBeFlatStruct(sample)

	columns := strings.Join(structs.Names(sample), ",\n\t")
	r.mustExecute(
		"CREATE TABLE " + name + " (\n\t" + columns + "\n);")

	r.tables[name] = &table{}
}

func (r *sqliteRecorder) Insert(name string, entry any) {
	t, found := r.tables[name]
	if !found {
		panic(fmt.Sprintf("table %s does not exist", name))
	}

	t.entries = append(t.entries, entry)

	r.numBuffered++
	if r.numBuffered >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *sqliteRecorder) Flush() {
	if r.numBuffered == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for name, t := range r.tables {
		if len(t.entries) == 0 {
			continue
		}

		stmt := r.prepareInsert(name, t.entries[0])

		for _, entry := range t.entries {
			values := reflect.ValueOf(entry)

			row := make([]any, 0, values.NumField())
			for i := 0; i < values.NumField(); i++ {
				row = append(row, values.Field(i).Interface())
			}

			if _, err := stmt.Exec(row...); err != nil {
				panic(err)
			}
		}

		stmt.Close()
		t.entries = nil
	}

	r.numBuffered = 0
}

func (r *sqliteRecorder) prepareInsert(name string, sample any) *sql.Stmt {
	placeholders := structs.Names(sample)
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := r.db.Prepare("INSERT INTO " + name + " VALUES (" +
		strings.Join(placeholders, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}

func (r *sqliteRecorder) mustExecute(query string) {
	if _, err := r.db.Exec(query); err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", query, err))
	}
}

func mustBeFlatStruct(sample any) {
	t := reflect.TypeOf(sample)

	for i := 0; i < t.NumField(); i++ {
		switch t.Field(i).Type.Kind() {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16,
			reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16,
			reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64,
			reflect.String:
		default:
			panic(fmt.Sprintf("field %s has unsupported type %s",
				t.Field(i).Name, t.Field(i).Type))
		}
	}
}
