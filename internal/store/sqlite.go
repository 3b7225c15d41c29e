package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yourorg/docpilot/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schemas (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			title TEXT NOT NULL,
			version TEXT NOT NULL,
			base_url TEXT NOT NULL,
			endpoints TEXT NOT NULL,
			parsed_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS queries (
			id TEXT PRIMARY KEY,
			schema_id TEXT NOT NULL,
			text TEXT NOT NULL,
			call TEXT NOT NULL,
			source TEXT NOT NULL,
			valid INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_queries_schema ON queries(schema_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSchema inserts doc or replaces the schema with the same id.
func (s *SQLiteStore) SaveSchema(doc *types.ParsedDocumentation) error {
	if doc == nil {
		return errors.New("schema is nil")
	}
	sc := &doc.Schema
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.ParsedAt.IsZero() {
		sc.ParsedAt = time.Now().UTC()
	}
	if sc.Endpoints == nil {
		sc.Endpoints = []types.ApiEndpoint{}
	}
	endpoints, err := json.Marshal(sc.Endpoints)
	if err != nil {
		return fmt.Errorf("encode endpoints: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO schemas(id,url,doc_type,title,version,base_url,endpoints,parsed_at) VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET url=excluded.url, doc_type=excluded.doc_type, title=excluded.title,
		version=excluded.version, base_url=excluded.base_url, endpoints=excluded.endpoints, parsed_at=excluded.parsed_at`,
		sc.ID, sc.URL, string(doc.Type), sc.Title, sc.Version, sc.BaseURL, string(endpoints), sc.ParsedAt)
	return err
}

const schemaColumns = `id,url,doc_type,title,version,base_url,endpoints,parsed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSchema(row scanner) (*types.ParsedDocumentation, error) {
	var (
		doc       types.ParsedDocumentation
		docType   string
		endpoints string
	)
	sc := &doc.Schema
	if err := row.Scan(&sc.ID, &sc.URL, &docType, &sc.Title, &sc.Version, &sc.BaseURL, &endpoints, &sc.ParsedAt); err != nil {
		return nil, err
	}
	doc.Type = types.DocType(docType)
	if err := json.Unmarshal([]byte(endpoints), &sc.Endpoints); err != nil {
		return nil, fmt.Errorf("decode endpoints of %s: %w", sc.ID, err)
	}
	if sc.Endpoints == nil {
		sc.Endpoints = []types.ApiEndpoint{}
	}
	return &doc, nil
}

func (s *SQLiteStore) GetSchema(id string) (*types.ParsedDocumentation, error) {
	row := s.db.QueryRow(`SELECT `+schemaColumns+` FROM schemas WHERE id=?`, id)
	doc, err := scanSchema(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *SQLiteStore) ListSchemas() ([]types.ParsedDocumentation, error) {
	rows, err := s.db.Query(`SELECT ` + schemaColumns + ` FROM schemas ORDER BY parsed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []types.ParsedDocumentation{}
	for rows.Next() {
		doc, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

// DeleteSchema removes a schema together with its query history.
func (s *SQLiteStore) DeleteSchema(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.Exec(`DELETE FROM schemas WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM queries WHERE schema_id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveQuery(rec *types.QueryRecord) error {
	if rec == nil {
		return errors.New("query record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	call, err := json.Marshal(rec.Call)
	if err != nil {
		return fmt.Errorf("encode call: %w", err)
	}
	valid := 0
	if rec.Valid {
		valid = 1
	}
	_, err = s.db.Exec(`INSERT INTO queries(id,schema_id,text,call,source,valid,created_at) VALUES(?,?,?,?,?,?,?)`,
		rec.ID, rec.SchemaID, rec.Text, string(call), string(rec.Source), valid, rec.CreatedAt)
	return err
}

// ListQueries returns the newest queries first. limit <= 0 means no limit.
func (s *SQLiteStore) ListQueries(schemaID string, limit int) ([]types.QueryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT id,schema_id,text,call,source,valid,created_at FROM queries
		WHERE schema_id=? ORDER BY created_at DESC LIMIT ?`, schemaID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []types.QueryRecord{}
	for rows.Next() {
		var (
			rec    types.QueryRecord
			call   string
			source string
			valid  int
		)
		if err := rows.Scan(&rec.ID, &rec.SchemaID, &rec.Text, &call, &source, &valid, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(call), &rec.Call); err != nil {
			return nil, fmt.Errorf("decode call of %s: %w", rec.ID, err)
		}
		rec.Source = types.CallSource(source)
		rec.Valid = valid == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
