package app

import (
	_ "github.com/mattn/go-sqlite3"

	"database/sql"
	"log"
	"os"

	// use deadlock detector mutexes here since deadlocks in database operations
	// will be common
	sync "github.com/sasha-s/go-deadlock"
)

const DbDebug bool = false

const DbFname = "./yukivision.sqlite3"

var db *Database

type Database struct {
	db *sql.DB
	mu sync.Mutex
}

func InitDB(reset bool) {
	if reset {
		os.Remove(DbFname)
	}
	sdb, err := sql.Open("sqlite3", DbFname)
	if err != nil {
		panic(err)
	}
	db = &Database{db: sdb}

	db.Exec(`CREATE TABLE IF NOT EXISTS datasets (
		id INTEGER PRIMARY KEY ASC,
		name TEXT,
		-- comma-separated ordered class labels
		classes TEXT
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY ASC,
		dataset_id INTEGER REFERENCES datasets(id),
		-- item key
		k TEXT,
		ext TEXT,
		format TEXT,
		-- index into the dataset's class list
		label INTEGER,
		width INTEGER,
		height INTEGER
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS models (
		id INTEGER PRIMARY KEY ASC,
		name TEXT,
		-- JSON-encoded yuki.ModelConfig
		config TEXT,
		classes TEXT,
		trained INTEGER
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY ASC,
		name TEXT,
		type TEXT,
		op TEXT,
		metadata TEXT,
		start_time TIMESTAMP,
		state TEXT DEFAULT '',
		done INTEGER DEFAULT 0,
		error TEXT DEFAULT ''
	)`)
}

func (this *Database) Query(q string, args ...interface{}) *Rows {
	this.mu.Lock()
	if DbDebug {
		log.Printf("[db] Query: %v", q)
	}
	rows, err := this.db.Query(q, args...)
	checkErr(err)
	return &Rows{this, true, rows}
}

func (this *Database) QueryRow(q string, args ...interface{}) *Row {
	this.mu.Lock()
	if DbDebug {
		log.Printf("[db] QueryRow: %v", q)
	}
	row := this.db.QueryRow(q, args...)
	return &Row{this, true, row}
}

func (this *Database) Exec(q string, args ...interface{}) Result {
	this.mu.Lock()
	defer this.mu.Unlock()
	if DbDebug {
		log.Printf("[db] Exec: %v", q)
	}
	result, err := this.db.Exec(q, args...)
	checkErr(err)
	return Result{result}
}

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}

type Rows struct {
	db     *Database
	locked bool
	rows   *sql.Rows
}

func (r *Rows) Close() {
	err := r.rows.Close()
	checkErr(err)
	if r.locked {
		r.db.mu.Unlock()
		r.locked = false
	}
}

func (r *Rows) Next() bool {
	hasNext := r.rows.Next()
	if !hasNext && r.locked {
		r.db.mu.Unlock()
		r.locked = false
	}
	return hasNext
}

func (r *Rows) Scan(dest ...interface{}) {
	err := r.rows.Scan(dest...)
	checkErr(err)
}

type Row struct {
	db     *Database
	locked bool
	row    *sql.Row
}

func (r Row) Scan(dest ...interface{}) {
	err := r.row.Scan(dest...)
	checkErr(err)
	if r.locked {
		r.db.mu.Unlock()
		r.locked = false
	}
}

type Result struct {
	result sql.Result
}

func (r Result) LastInsertId() int {
	id, err := r.result.LastInsertId()
	checkErr(err)
	return int(id)
}

func (r Result) RowsAffected() int {
	count, err := r.result.RowsAffected()
	checkErr(err)
	return int(count)
}
