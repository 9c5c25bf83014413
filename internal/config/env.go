package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP surface and upload limits.
type ServerConfig struct {
	Port             string
	MaxUploadBytes   int64
	UploadRatePerMin int
	UploadBurst      int
	ShutdownTimeout  time.Duration
}

// RenderConfig defines preview and export defaults.
type RenderConfig struct {
	PreviewWidth  int
	ExportDPI     int
	ExportQuality int
	ExportFormat  string
}

// WorkspaceConfig defines workspace and artifact lifetimes.
type WorkspaceConfig struct {
	FixedCountDebounce time.Duration
	TTL                time.Duration
	SweepInterval      time.Duration
	ArtifactTTL        time.Duration
}

// JobsConfig defines worker behavior and limits.
type JobsConfig struct {
	Concurrency int
	QueueSize   int
	Timeout     time.Duration
}

// StatusConfig selects the job status backend. An empty RedisURL keeps
// status in memory.
type StatusConfig struct {
	RedisURL string
	TTL      time.Duration
}

// ExportConfig defines optional copies of every download.
type ExportConfig struct {
	Dir        string
	MaxAge     time.Duration
	S3Bucket   string
	S3Prefix   string
	PresignTTL time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Server    ServerConfig
	Render    RenderConfig
	Workspace WorkspaceConfig
	Jobs      JobsConfig
	Status    StatusConfig
	Export    ExportConfig
}

// Load reads a local .env file when present, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfdesk.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfdesk",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:             getEnv("PORT", "8080"),
		MaxUploadBytes:   parseInt64(getEnv("MAX_UPLOAD_BYTES", ""), 100<<20),
		UploadRatePerMin: parseInt(getEnv("UPLOAD_RATE_PER_MIN", "60"), 60),
		UploadBurst:      parseInt(getEnv("UPLOAD_BURST", "10"), 10),
		ShutdownTimeout:  parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Render = RenderConfig{
		PreviewWidth:  parseInt(getEnv("PREVIEW_WIDTH", "200"), 200),
		ExportDPI:     parseInt(getEnv("EXPORT_DPI", "150"), 150),
		ExportQuality: parseInt(getEnv("EXPORT_QUALITY", "80"), 80),
		ExportFormat:  getEnv("EXPORT_FORMAT", "png"),
	}

	cfg.Workspace = WorkspaceConfig{
		FixedCountDebounce: parseDuration(getEnv("FIXED_COUNT_DEBOUNCE", "500ms"), 500*time.Millisecond),
		TTL:                parseDuration(getEnv("WORKSPACE_TTL", "1h"), time.Hour),
		SweepInterval:      parseDuration(getEnv("WORKSPACE_SWEEP_INTERVAL", "1m"), time.Minute),
		ArtifactTTL:        parseDuration(getEnv("ARTIFACT_TTL", "15m"), 15*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Concurrency: parseInt(getEnv("JOB_CONCURRENCY", "2"), 2),
		QueueSize:   parseInt(getEnv("JOB_QUEUE_SIZE", "64"), 64),
		Timeout:     parseDuration(getEnv("JOB_TIMEOUT", "5m"), 5*time.Minute),
	}

	cfg.Status = StatusConfig{
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      parseDuration(getEnv("STATUS_TTL", "24h"), 24*time.Hour),
	}

	cfg.Export = ExportConfig{
		Dir:        getEnv("EXPORT_DIR", ""),
		MaxAge:     parseDuration(getEnv("EXPORT_MAX_AGE", "24h"), 24*time.Hour),
		S3Bucket:   getEnv("EXPORT_S3_BUCKET", ""),
		S3Prefix:   getEnv("EXPORT_S3_PREFIX", "pdfdesk"),
		PresignTTL: parseDuration(getEnv("EXPORT_PRESIGN_TTL", "1h"), time.Hour),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
