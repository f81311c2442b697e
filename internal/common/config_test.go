package common

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("testdata-missing.env")
	if cfg.Server.HTTPAddr != ":8000" || cfg.Server.GRPCAddr != "" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Storage.MaxUploadBytes != 20<<20 || cfg.Storage.UploadTTL != time.Hour {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.OCR.TesseractLang != "tur+eng" || cfg.OCR.DPI != 300 || cfg.OCR.PageWorkers != 2 {
		t.Errorf("ocr = %+v", cfg.OCR)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")

	cfg := LoadConfig("testdata-missing.env")
	if cfg.Server.HTTPAddr != ":9090" || cfg.LLM.Provider != "openai" || cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.MaxUploadBytes != 1024 {
		t.Errorf("max upload = %d", cfg.Storage.MaxUploadBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "bard" }},
		{name: "openai without key", mutate: func(c *Config) { c.LLM.Provider = "openai"; c.LLM.APIKey = "" }},
		{name: "zero timeout", mutate: func(c *Config) { c.LLM.Timeout = 0 }},
		{name: "no upload dir", mutate: func(c *Config) { c.Storage.UploadDir = "" }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig("testdata-missing.env")
			tt.mutate(cfg)
			err := cfg.Validate()
			if ErrorCode(err) != CodeConfig || !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want CONFIG_ERROR", err)
			}
		})
	}
}
