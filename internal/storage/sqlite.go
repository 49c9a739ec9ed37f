package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/sirupsen/logrus"
)

// SQLStore implements TableStore on a SQL database.
// Used with sqlite3 (local) and pgx (Postgres); placeholders go through sqlx.Rebind.
type SQLStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

type tableMeta struct {
	Name      string `db:"name"`
	Columns   string `db:"columns"`
	RowCount  int    `db:"row_count"`
	UpdatedAt string `db:"updated_at"`
}

// NewSQLiteStore creates a SQLite-backed store at path (":memory:" allowed)
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// Single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode = WAL")

	return newSQLStore(db, "BLOB", logger)
}

func newSQLStore(db *sqlx.DB, blobType string, logger *logrus.Logger) (*SQLStore, error) {
	store := &SQLStore{db: db, logger: logger}
	if err := store.initSchema(blobType); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLStore) initSchema(blobType string) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS output_tables (
			name TEXT PRIMARY KEY,
			columns TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS output_rows (
			table_name TEXT NOT NULL,
			row_idx INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (table_name, row_idx)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS output_blobs (
			name TEXT PRIMARY KEY,
			data %s NOT NULL,
			updated_at TEXT NOT NULL
		)`, blobType),
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Exists implements TableStore
func (s *SQLStore) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	query := s.db.Rebind(`SELECT COUNT(*) FROM output_tables WHERE name = ?`)
	if err := s.db.GetContext(ctx, &count, query, name); err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

// Read implements TableStore
func (s *SQLStore) Read(ctx context.Context, name string) (*table.Table, error) {
	var meta tableMeta
	query := s.db.Rebind(`SELECT name, columns, row_count, updated_at FROM output_tables WHERE name = ?`)
	if err := s.db.GetContext(ctx, &meta, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("table %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get table %s: %w", name, err)
	}

	var columns []string
	if err := json.Unmarshal([]byte(meta.Columns), &columns); err != nil {
		return nil, fmt.Errorf("decode columns of %s: %w", name, err)
	}

	var payloads []string
	query = s.db.Rebind(`SELECT data FROM output_rows WHERE table_name = ? ORDER BY row_idx`)
	if err := s.db.SelectContext(ctx, &payloads, query, name); err != nil {
		return nil, fmt.Errorf("get rows of %s: %w", name, err)
	}

	t := table.New(columns...)
	for i, p := range payloads {
		var row table.Row
		if err := json.Unmarshal([]byte(p), &row); err != nil {
			return nil, fmt.Errorf("decode row %d of %s: %w", i, name, err)
		}
		t.Append(row)
	}
	return t, nil
}

// Write implements TableStore. The previous table of the same name is replaced atomically.
func (s *SQLStore) Write(ctx context.Context, t *table.Table, name string) error {
	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("encode columns of %s: %w", name, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write of %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM output_rows WHERE table_name = ?`), name); err != nil {
		return fmt.Errorf("clear rows of %s: %w", name, err)
	}

	upsert := tx.Rebind(`
		INSERT INTO output_tables (name, columns, row_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			columns = EXCLUDED.columns,
			row_count = EXCLUDED.row_count,
			updated_at = EXCLUDED.updated_at
	`)
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, upsert, name, string(columns), t.Len(), now); err != nil {
		return fmt.Errorf("save table %s: %w", name, err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO output_rows (table_name, row_idx, data) VALUES (?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d of %s: %w", i, name, err)
		}
		if _, err := stmt.ExecContext(ctx, name, i, string(data)); err != nil {
			return fmt.Errorf("insert row %d of %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit table %s: %w", name, err)
	}

	s.logger.WithFields(logrus.Fields{"table": name, "rows": t.Len()}).Debug("table written to sql store")
	return nil
}

// WriteBlob implements TableStore
func (s *SQLStore) WriteBlob(ctx context.Context, name string, data []byte) error {
	query := s.db.Rebind(`
		INSERT INTO output_blobs (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`)
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, query, name, data, now); err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	return nil
}

// ReadBlob returns a previously written artifact
func (s *SQLStore) ReadBlob(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	query := s.db.Rebind(`SELECT data FROM output_blobs WHERE name = ?`)
	if err := s.db.GetContext(ctx, &data, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("blob %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get blob %s: %w", name, err)
	}
	return data, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
