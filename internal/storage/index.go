// Package storage keeps uploaded documents on local disk until a request
// consumes them, with a small index from file id to file metadata.
package storage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileRecord describes one upload.
type FileRecord struct {
	ID          uuid.UUID
	Filename    string // original client file name
	Ext         string // normalized, without the dot
	Size        int64
	ContentHash []byte // sha256
	Path        string
	UploadedAt  time.Time
}

// Index maps upload ids to records. Implementations are safe for concurrent use.
type Index interface {
	Insert(ctx context.Context, rec FileRecord) error
	// Get returns common.ErrNotFound (wrapped) for unknown ids.
	Get(ctx context.Context, id uuid.UUID) (FileRecord, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	OlderThan(ctx context.Context, cutoff time.Time) ([]FileRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

type IndexConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// IsPostgresDSN reports whether dsn selects the Postgres index.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// OpenIndex opens a Postgres index for postgres:// DSNs and a SQLite file
// index otherwise. The schema is created when missing.
func OpenIndex(ctx context.Context, cfg IndexConfig, logger *slog.Logger) (Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if IsPostgresDSN(cfg.DSN) {
		return OpenPostgres(ctx, cfg, logger)
	}
	return OpenSQLite(ctx, cfg.DSN, logger)
}
