// Package docstore is the secondary document store: denormalized transaction
// and import documents plus audit logs, kept in sqlite and fed exclusively by
// the outbox relay.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
)

const (
	CollectionTransactions = "transactions"
	CollectionImports      = "imports"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (collection, key)
		);
		CREATE TABLE IF NOT EXISTS audit_logs (
			id          TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id   TEXT,
			action      TEXT NOT NULL,
			details     TEXT,
			created_at  DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Put upserts a document; the body is raw JSON.
func (s *Store) Put(ctx context.Context, collection, key string, body []byte) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		collection, key, string(body), now, now,
	)
	return err
}

func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection=? AND key=?`, collection, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection=? AND key=?`, collection, key)
	return err
}

func (s *Store) ListCollection(ctx context.Context, collection string, limit int) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection=? ORDER BY updated_at DESC LIMIT ?`,
		collection, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, []byte(body))
	}
	return out, rows.Err()
}

// AppendAudit records an audit entry; failures are the caller's to log, an
// audit miss never fails the operation it records.
func (s *Store) AppendAudit(ctx context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	var details []byte
	if l.Details != nil {
		var err error
		details, err = json.Marshal(l.Details)
		if err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, entity_type, entity_id, action, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.EntityType, l.EntityID, l.Action, string(details), l.CreatedAt,
	)
	return err
}

func (s *Store) ListAudit(ctx context.Context, entityType string, limit int) ([]models.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_type, entity_id, action, details, created_at
		   FROM audit_logs WHERE entity_type=? ORDER BY created_at DESC LIMIT ?`,
		entityType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		var details sql.NullString
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.Action, &details, &l.CreatedAt); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" {
			_ = json.Unmarshal([]byte(details.String), &l.Details)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
