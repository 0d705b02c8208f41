package notary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"xdao.co/graphwire/reference"
)

const schema = `
CREATE TABLE IF NOT EXISTS deposits (
	sender TEXT NOT NULL,
	identifier TEXT NOT NULL,
	hash TEXT NOT NULL,
	encrypted_key BLOB NOT NULL,
	signature TEXT NOT NULL DEFAULT '',
	expires_at INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (sender, identifier)
);
CREATE INDEX IF NOT EXISTS idx_deposits_expires ON deposits(expires_at);
`

// SQLite is a Store persisted in a SQLite database.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dsn. ":memory:"
// gives a private in-memory database.
func OpenSQLite(dsn string, ttl time.Duration) (*SQLite, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Deposit(ctx context.Context, d reference.Deposit) error {
	if err := validate(d); err != nil {
		return err
	}
	d = stamp(d, s.ttl, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO deposits (sender, identifier, hash, encrypted_key, signature, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.Sender, d.Identifier, d.Hash, d.EncryptedKey, d.Signature, unixNano(d.ExpiresAt))
	if err != nil {
		return fmt.Errorf("notary: deposit: %w", err)
	}
	return nil
}

func (s *SQLite) Fetch(ctx context.Context, sender, identifier string) (reference.Deposit, error) {
	d := reference.Deposit{Sender: sender, Identifier: identifier}
	var expires int64
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, encrypted_key, signature, expires_at FROM deposits
		WHERE sender = ? AND identifier = ?`, sender, identifier).
		Scan(&d.Hash, &d.EncryptedKey, &d.Signature, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return reference.Deposit{}, ErrNotFound
	}
	if err != nil {
		return reference.Deposit{}, fmt.Errorf("notary: fetch: %w", err)
	}
	if expires != 0 {
		d.ExpiresAt = time.Unix(0, expires).UTC()
	}
	if expired(d, s.now()) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM deposits WHERE sender = ? AND identifier = ?`, sender, identifier); err != nil {
			return reference.Deposit{}, fmt.Errorf("notary: purge: %w", err)
		}
		return reference.Deposit{}, ErrExpired
	}
	return d, nil
}

func (s *SQLite) Revoke(ctx context.Context, sender, identifier string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deposits WHERE sender = ? AND identifier = ?`, sender, identifier)
	if err != nil {
		return fmt.Errorf("notary: revoke: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("notary: revoke: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge deletes every deposit that has expired and returns how many went.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deposits WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("notary: purge: %w", err)
	}
	return res.RowsAffected()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
