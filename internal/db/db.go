// Package db provides the database abstraction for the structured
// store variant and for identity persistence.
package db

import (
	"database/sql"

	"github.com/rs/zerolog"
)

type Db interface {
	InitDb(path string) error

	Get() *sql.DB
	Close() error

	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}
