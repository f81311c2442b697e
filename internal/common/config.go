package common

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/fieldextract/constants"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	OCR     OCRConfig
	LLM     LLMConfig
	Extract ExtractConfig
	Log     LogConfig
}

// ServerConfig holds transport-related configuration
type ServerConfig struct {
	HTTPAddr          string
	GRPCAddr          string // empty disables the gRPC health endpoint
	ReadHeaderTimeout time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

// StorageConfig holds upload storage configuration
type StorageConfig struct {
	UploadDir      string
	MaxUploadBytes int64
	UploadTTL      time.Duration
	SweepInterval  time.Duration
	IndexDSN       string // sqlite file path, or postgres:// URL
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract         string
	Pdftoppm          string
	TesseractLang     string
	TessdataDir       string
	DPI               int
	PSM               int
	MaxPages          int
	PageWorkers       int
	MinTextLayerChars int
}

// LLMConfig holds completion-service configuration for the semantic strategy
type LLMConfig struct {
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// ExtractConfig holds field-extraction configuration
type ExtractConfig struct {
	LabelsFile string // optional YAML overriding the embedded label synonyms
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "json" | "text"
}

// LoadConfig loads configuration from environment variables, after loading
// any .env files given (defaults to ".env" when present).
func LoadConfig(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Server: ServerConfig{
			HTTPAddr:          v.GetString("HTTP_ADDR"),
			GRPCAddr:          v.GetString("GRPC_ADDR"),
			ReadHeaderTimeout: v.GetDuration("HTTP_READ_HEADER_TIMEOUT"),
			RequestTimeout:    v.GetDuration("HTTP_REQUEST_TIMEOUT"),
			ShutdownTimeout:   v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Storage: StorageConfig{
			UploadDir:      v.GetString("UPLOAD_DIR"),
			MaxUploadBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
			UploadTTL:      v.GetDuration("UPLOAD_TTL"),
			SweepInterval:  v.GetDuration("UPLOAD_SWEEP_INTERVAL"),
			IndexDSN:       v.GetString("INDEX_DSN"),
		},
		OCR: OCRConfig{
			Tesseract:         v.GetString("TESSERACT"),
			Pdftoppm:          v.GetString("PDFTOPPM"),
			TesseractLang:     v.GetString("TESSERACT_LANG"),
			TessdataDir:       v.GetString("TESSDATA_PREFIX"),
			DPI:               v.GetInt("OCR_DPI"),
			PSM:               v.GetInt("OCR_PSM"),
			MaxPages:          v.GetInt("OCR_MAX_PAGES"),
			PageWorkers:       v.GetInt("OCR_PAGE_WORKERS"),
			MinTextLayerChars: v.GetInt("OCR_MIN_TEXT_LAYER"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("LLM_PROVIDER")),
			BaseURL:     v.GetString("LLM_BASE_URL"),
			Model:       v.GetString("LLM_MODEL"),
			APIKey:      v.GetString("LLM_API_KEY"),
			Temperature: float32(v.GetFloat64("LLM_TEMPERATURE")),
			Timeout:     v.GetDuration("LLM_TIMEOUT"),
		},
		Extract: ExtractConfig{
			LabelsFile: v.GetString("LABELS_FILE"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", "")
	v.SetDefault("HTTP_READ_HEADER_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_REQUEST_TIMEOUT", 3*time.Minute)
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)

	v.SetDefault("UPLOAD_DIR", "./tmp/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 20<<20)
	v.SetDefault("UPLOAD_TTL", time.Hour)
	v.SetDefault("UPLOAD_SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("INDEX_DSN", "./tmp/uploads.db")

	v.SetDefault("TESSERACT", "tesseract")
	v.SetDefault("PDFTOPPM", "pdftoppm")
	v.SetDefault("TESSERACT_LANG", "tur+eng")
	v.SetDefault("TESSDATA_PREFIX", "")
	v.SetDefault("OCR_DPI", 300)
	v.SetDefault("OCR_PSM", 0)
	v.SetDefault("OCR_MAX_PAGES", 0)
	v.SetDefault("OCR_PAGE_WORKERS", 2)
	v.SetDefault("OCR_MIN_TEXT_LAYER", 32)

	v.SetDefault("LLM_PROVIDER", constants.ProviderOllama)
	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_TEMPERATURE", 0.0)
	v.SetDefault("LLM_TIMEOUT", 30*time.Second)

	v.SetDefault("LABELS_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	v.Field("UPLOAD_DIR", c.Storage.UploadDir, Required)
	v.Field("INDEX_DSN", c.Storage.IndexDSN, Required)
	v.Field("LLM_PROVIDER", c.LLM.Provider, OneOf(constants.ProviderOllama, constants.ProviderOpenAI))
	v.Field("LOG_FORMAT", c.Log.Format, OneOf("json", "text"))
	if c.LLM.Provider == constants.ProviderOpenAI {
		v.Field("LLM_API_KEY", c.LLM.APIKey, Required)
	}
	if c.LLM.Timeout <= 0 {
		v.Add("LLM_TIMEOUT", c.LLM.Timeout, "must be positive")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		v.Add("UPLOAD_MAX_BYTES", c.Storage.MaxUploadBytes, "must be positive")
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
