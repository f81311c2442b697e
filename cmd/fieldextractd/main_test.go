package main

import (
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	return &common.Config{
		Server: common.ServerConfig{
			HTTPAddr:        "127.0.0.1:0",
			ShutdownTimeout: time.Second,
		},
		Storage: common.StorageConfig{
			UploadDir:      filepath.Join(dir, "uploads"),
			MaxUploadBytes: 1024,
			IndexDSN:       filepath.Join(dir, "index.db"),
		},
		LLM: common.LLMConfig{Provider: "ollama", Timeout: time.Second},
		Log: common.LogConfig{Level: "error", Format: "text"},
	}
}

func TestRunReturnsStartupErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name    string
		mutate  func(t *testing.T, cfg *common.Config)
		wantErr string
	}{
		{
			name: "upload dir is a file",
			mutate: func(t *testing.T, cfg *common.Config) {
				f := filepath.Join(t.TempDir(), "taken")
				if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
					t.Fatal(err)
				}
				cfg.Storage.UploadDir = filepath.Join(f, "uploads")
			},
			wantErr: "open upload store",
		},
		{
			name: "missing labels file",
			mutate: func(_ *testing.T, cfg *common.Config) {
				cfg.Extract.LabelsFile = filepath.Join(cfg.Storage.UploadDir, "nope.yaml")
			},
			wantErr: "load labels",
		},
		{
			name: "http address in use",
			mutate: func(t *testing.T, cfg *common.Config) {
				lis, err := net.Listen("tcp", "127.0.0.1:0")
				if err != nil {
					t.Fatal(err)
				}
				t.Cleanup(func() { _ = lis.Close() })
				cfg.Server.HTTPAddr = lis.Addr().String()
			},
			wantErr: "http serve",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(t, cfg)

			done := make(chan error, 1)
			go func() { done <- run(cfg, logger) }()
			select {
			case err := <-done:
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("run() = %v, want an error containing %q", err, tt.wantErr)
				}
			case <-time.After(10 * time.Second):
				t.Fatal("run did not return")
			}
		})
	}
}
