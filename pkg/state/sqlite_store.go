package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// SQLiteStore is a Store backed by a SQLite database in WAL mode. Each Ref is
// one row holding the document as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: connect database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	var (
		document  string
		updatedAt string
		extra     string
		meta      Meta
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT document, snapshot_id, etag, updated_at, releases, extra FROM records WHERE identifier = ?`, key)
	if err := row.Scan(&document, &meta.SnapshotID, &meta.ETag, &updatedAt, &meta.Releases, &extra); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Meta{}, false, nil
		}
		return nil, Meta{}, false, fmt.Errorf("state: load %s: %w", key, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	if updatedAt != "" {
		parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, Meta{}, false, fmt.Errorf("state: decode %s updated_at: %w", key, err)
		}
		meta.UpdatedAt = parsed
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &meta.Extra); err != nil {
			return nil, Meta{}, false, fmt.Errorf("state: decode %s extra: %w", key, err)
		}
	}
	return doc, meta, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, ref Ref, doc map[string]any, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	document, err := json.Marshal(doc)
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", key, err)
	}
	extra := []byte("{}")
	if len(meta.Extra) > 0 {
		if extra, err = json.Marshal(meta.Extra); err != nil {
			return Meta{}, fmt.Errorf("state: encode %s extra: %w", key, err)
		}
	}
	var updatedAt string
	if !meta.UpdatedAt.IsZero() {
		updatedAt = meta.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (identifier, ocid, kind, document, snapshot_id, etag, updated_at, releases, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			document = excluded.document,
			snapshot_id = excluded.snapshot_id,
			etag = excluded.etag,
			updated_at = excluded.updated_at,
			releases = excluded.releases,
			extra = excluded.extra`,
		key, ref.OCID, string(ref.Kind), string(document), meta.SnapshotID, meta.ETag, updatedAt, meta.Releases, string(extra))
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", key, err)
	}
	return cloneMeta(meta), nil
}

// OCIDs returns the distinct ocids stored for kind, sorted.
func (s *SQLiteStore) OCIDs(ctx context.Context, kind Kind) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ocid FROM records WHERE kind = ? ORDER BY ocid`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("state: list %s: %w", kind, err)
	}
	defer rows.Close()

	var ocids []string
	for rows.Next() {
		var ocid string
		if err := rows.Scan(&ocid); err != nil {
			return nil, fmt.Errorf("state: list %s: %w", kind, err)
		}
		ocids = append(ocids, ocid)
	}
	return ocids, rows.Err()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("state: execute %q: %w", pragma, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("state: read user_version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("state: apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("state: set user_version: %w", err)
	}
	return nil
}
