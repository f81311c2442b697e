package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS uploads (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	ext          TEXT NOT NULL,
	size         INTEGER NOT NULL,
	content_hash BLOB NOT NULL,
	path         TEXT NOT NULL,
	uploaded_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS uploads_uploaded_at ON uploads (uploaded_at);
`

type sqliteIndex struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (or creates) a SQLite index at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (Index, error) {
	if path == "" {
		return nil, common.NewAppError(common.CodeConfig, "sqlite index path is empty", nil)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	logger.Info("storage.index.open", "driver", "sqlite", "path", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time keeps SQLite free of SQLITE_BUSY under load
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &sqliteIndex{db: db, logger: logger}, nil
}

func (s *sqliteIndex) Insert(ctx context.Context, rec FileRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, filename, ext, size, content_hash, path, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Filename, rec.Ext, rec.Size, rec.ContentHash, rec.Path, rec.UploadedAt.UnixNano(),
	)
	if err != nil {
		s.logger.Error("storage.index.insert_error", "file_id", rec.ID, "error", err)
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (s *sqliteIndex) Get(ctx context.Context, id uuid.UUID) (FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, ext, size, content_hash, path, uploaded_at FROM uploads WHERE id = ?`, id.String())
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRecord{}, common.NotFoundf("file %s not found", id)
	}
	if err != nil {
		return FileRecord{}, fmt.Errorf("get upload: %w", err)
	}
	return rec, nil
}

func (s *sqliteIndex) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete upload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete upload: %w", err)
	}
	return n > 0, nil
}

func (s *sqliteIndex) OlderThan(ctx context.Context, cutoff time.Time) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, ext, size, content_hash, path, uploaded_at FROM uploads WHERE uploaded_at < ? ORDER BY uploaded_at`,
		cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sqliteIndex) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteIndex) Close() error {
	s.logger.Info("storage.index.close", "driver", "sqlite")
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(r rowScanner) (FileRecord, error) {
	var (
		rec   FileRecord
		id    string
		nanos int64
	)
	if err := r.Scan(&id, &rec.Filename, &rec.Ext, &rec.Size, &rec.ContentHash, &rec.Path, &nanos); err != nil {
		return FileRecord{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return FileRecord{}, fmt.Errorf("bad id %q in index: %w", id, err)
	}
	rec.ID = parsed
	rec.UploadedAt = time.Unix(0, nanos).UTC()
	return rec, nil
}
