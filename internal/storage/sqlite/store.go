package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"prettify/internal/storage"
)

// Store persists document records in a SQLite database.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	)`)
	return err
}

func (s *Store) Save(ctx context.Context, rec storage.Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	query := `INSERT INTO documents (id, seq, input, output, error, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	            seq = excluded.seq,
	            input = excluded.input,
	            output = excluded.output,
	            error = excluded.error,
	            updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, int64(rec.Seq), rec.Input, rec.Output, rec.Error, rec.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (storage.Record, error) {
	query := `SELECT id, seq, input, output, error, updated_at FROM documents WHERE id = ?`

	var (
		rec     storage.Record
		seq     int64
		updated int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &seq, &rec.Input, &rec.Output, &rec.Error, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	rec.Seq = uint64(seq)
	rec.UpdatedAt = time.Unix(0, updated)
	return rec, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
