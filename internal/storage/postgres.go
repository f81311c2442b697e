package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS uploads (
	id           UUID PRIMARY KEY,
	filename     TEXT NOT NULL,
	ext          TEXT NOT NULL,
	size         BIGINT NOT NULL,
	content_hash BYTEA NOT NULL,
	path         TEXT NOT NULL,
	uploaded_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS uploads_uploaded_at ON uploads (uploaded_at);
`

type postgresIndex struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool for cfg.DSN and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg IndexConfig, logger *slog.Logger) (Index, error) {
	logger.Info("storage.index.open", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("storage.index.parse_dsn_error", "error", err)
		return nil, common.NewAppError(common.CodeConfig, "invalid INDEX_DSN", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "fieldextract"

	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 3 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		logger.Error("storage.index.connect_error", "error", err)
		return nil, fmt.Errorf("%w: connect postgres: %w", common.ErrUnavailable, err)
	}
	if _, err := pool.Exec(dctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	logger.Info("storage.index.connected", "driver", "postgres")
	return &postgresIndex{pool: pool, logger: logger}, nil
}

func (p *postgresIndex) Insert(ctx context.Context, rec FileRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO uploads (id, filename, ext, size, content_hash, path, uploaded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Filename, rec.Ext, rec.Size, rec.ContentHash, rec.Path, rec.UploadedAt,
	)
	if err != nil {
		p.logger.Error("storage.index.insert_error", "file_id", rec.ID, "error", err)
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (p *postgresIndex) Get(ctx context.Context, id uuid.UUID) (FileRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, filename, ext, size, content_hash, path, uploaded_at FROM uploads WHERE id = $1`, id)
	if err != nil {
		return FileRecord{}, fmt.Errorf("get upload: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanPostgres)
	if errors.Is(err, pgx.ErrNoRows) {
		return FileRecord{}, common.NotFoundf("file %s not found", id)
	}
	if err != nil {
		return FileRecord{}, fmt.Errorf("get upload: %w", err)
	}
	return rec, nil
}

func (p *postgresIndex) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete upload: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *postgresIndex) OlderThan(ctx context.Context, cutoff time.Time) ([]FileRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, filename, ext, size, content_hash, path, uploaded_at FROM uploads WHERE uploaded_at < $1 ORDER BY uploaded_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	recs, err := pgx.CollectRows(rows, scanPostgres)
	if err != nil {
		return nil, fmt.Errorf("scan uploads: %w", err)
	}
	return recs, nil
}

// Ping checks the pool, bounded by a short timeout.
func (p *postgresIndex) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *postgresIndex) Close() error {
	p.logger.Info("storage.index.close", "driver", "postgres")
	p.pool.Close()
	return nil
}

func scanPostgres(row pgx.CollectableRow) (FileRecord, error) {
	var rec FileRecord
	err := row.Scan(&rec.ID, &rec.Filename, &rec.Ext, &rec.Size, &rec.ContentHash, &rec.Path, &rec.UploadedAt)
	rec.UploadedAt = rec.UploadedAt.UTC()
	return rec, err
}
