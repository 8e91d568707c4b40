package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	conn *sql.DB
}

func NewSQLite() *SQLite {
	return &SQLite{
		conn: nil,
	}
}

func (s *SQLite) InitDb(path string) error {
	var err error
	s.conn, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	res, err := s.conn.Exec(`
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    github_id TEXT UNIQUE,
    username TEXT NOT NULL,
    avatar TEXT,
    repo_name TEXT,
    encrypted_token TEXT,
    api_key TEXT UNIQUE,
    webhook_url TEXT,
    webhook_logs TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    title TEXT NOT NULL,
    slug TEXT NOT NULL,
    content BLOB,
    content_hash TEXT,
    excerpt TEXT,
    featured_image TEXT,
    tags TEXT NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'published',
    meta_title TEXT,
    meta_description TEXT,
    og_image TEXT,
    created_at DATETIME,
    modified_at DATETIME,
    UNIQUE(owner, slug),
    FOREIGN KEY(owner) REFERENCES users(id)
);`)
	if err != nil {
		return err
	}

	dbLogger.Info().Any("db_result", res).Msg("Database initialized")
	return nil
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(query string, args ...interface{}) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.Query(query, args...)
}

func (s *SQLite) QueryRow(query string, args ...interface{}) *sql.Row {
	dbLogger.Debug().Str("query", query).Msg("QueryRow")
	return s.conn.QueryRow(query, args...)
}

func (s *SQLite) Exec(query string, args ...interface{}) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.Exec(query, args...)
}
