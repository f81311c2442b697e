package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
)

type Config struct {
	Dir      string
	MaxBytes int64
}

// Store writes uploads to Dir as <uuid>.<ext> and tracks them in an Index.
type Store struct {
	cfg    Config
	index  Index
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(cfg Config, index Index, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, common.NewAppError(common.CodeConfig, "upload dir is empty", nil)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "create upload dir", err)
	}
	return &Store{cfg: cfg, index: index, logger: logger, now: time.Now}, nil
}

// Save streams r to disk. It rejects unsupported extensions, empty bodies
// and bodies larger than MaxBytes.
func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (FileRecord, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if !constants.IsAllowedExt(ext) {
		return FileRecord{}, common.NewAppError(common.CodeUnsupportedMedia,
			fmt.Sprintf("file type %q is not supported", ext), common.ErrUnsupportedMedia)
	}

	id := uuid.New()
	final := filepath.Join(s.cfg.Dir, id.String()+"."+ext)
	tmp, err := os.CreateTemp(s.cfg.Dir, ".upload-*")
	if err != nil {
		return FileRecord{}, fmt.Errorf("create upload file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	src := r
	if s.cfg.MaxBytes > 0 {
		src = io.LimitReader(r, s.cfg.MaxBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return FileRecord{}, fmt.Errorf("write upload: %w", err)
	}
	if s.cfg.MaxBytes > 0 && n > s.cfg.MaxBytes {
		return FileRecord{}, common.NewAppError(common.CodePayloadTooLarge,
			fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxBytes), common.ErrPayloadTooLarge)
	}
	if n == 0 {
		return FileRecord{}, common.InvalidInputf("file is empty")
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return FileRecord{}, fmt.Errorf("commit upload: %w", err)
	}
	committed = true

	rec := FileRecord{
		ID:          id,
		Filename:    filepath.Base(filename),
		Ext:         ext,
		Size:        n,
		ContentHash: h.Sum(nil),
		Path:        final,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.index.Insert(ctx, rec); err != nil {
		_ = os.Remove(final)
		return FileRecord{}, err
	}

	s.logger.Info("storage.save.ok",
		"req_id", rid,
		"file_id", id,
		"ext", ext,
		"size", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// Resolve maps a client-supplied file id to its record. Malformed ids are
// client-input errors; unknown ids and vanished files are not-found.
func (s *Store) Resolve(ctx context.Context, fileID string) (FileRecord, error) {
	id, err := ParseFileID(fileID)
	if err != nil {
		return FileRecord{}, err
	}
	rec, err := s.index.Get(ctx, id)
	if err != nil {
		return FileRecord{}, err
	}
	if _, err := os.Stat(rec.Path); errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("storage.resolve.missing_file", "file_id", id, "path", rec.Path)
		_, _ = s.index.Delete(ctx, id)
		return FileRecord{}, common.NotFoundf("file %s not found", id)
	}
	return rec, nil
}

// Delete removes the file and its index row. Deleting an unknown id is a
// not-found error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := s.index.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(rec.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("storage.delete.file_error", "file_id", id, "error", err)
	}
	if _, err := s.index.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("storage.delete.ok", "file_id", id)
	return nil
}

// Sweep deletes uploads older than ttl and returns how many were removed.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	recs, err := s.index.OlderThan(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(rec.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("storage.sweep.file_error", "file_id", rec.ID, "error", err)
			continue
		}
		if ok, err := s.index.Delete(ctx, rec.ID); err != nil {
			return removed, err
		} else if ok {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("storage.sweep.ok", "removed", removed, "ttl", ttl.String())
	}
	return removed, nil
}

// Ping checks the index.
func (s *Store) Ping(ctx context.Context) error { return s.index.Ping(ctx) }

// ParseFileID validates a client-supplied upload id.
func ParseFileID(fileID string) (uuid.UUID, error) {
	v := common.NewValidator()
	v.Field("file_id", fileID, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(fileID), nil
}
