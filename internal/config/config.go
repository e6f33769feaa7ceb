package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	S3        S3Config
	Extract   ExtractConfig
	OCR       OCRConfig
	Vision    VisionConfig
	Reasoning ReasoningConfig
	Profiles  ProfilesConfig
	CORS      CORSConfig
	Upload    UploadConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings for the ingestion
// audit log. Auditing is optional: an empty host disables it.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Enabled reports whether audit logging is configured.
func (d *DBConfig) Enabled() bool {
	return d.Host != ""
}

// S3Config holds settings for the optional source-document archive.
// An empty bucket disables archival.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Enabled reports whether document archival is configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != ""
}

// ExtractConfig holds the extraction chain quality gate thresholds.
type ExtractConfig struct {
	MinCharacters int     `mapstructure:"min_characters"`
	MinAlphaRatio float64 `mapstructure:"min_alpha_ratio"`
}

// OCRConfig holds settings for the remote OCR engine. An empty
// endpoint or API key disables the engine.
type OCRConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// Enabled reports whether the remote OCR engine is configured.
func (o *OCRConfig) Enabled() bool {
	return o.Endpoint != "" && o.APIKey != ""
}

// VisionConfig holds Azure Computer Vision settings for the image OCR
// engine. An empty endpoint or API key disables the engine.
type VisionConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// Enabled reports whether the image OCR engine is configured.
func (v *VisionConfig) Enabled() bool {
	return v.Endpoint != "" && v.APIKey != ""
}

// ReasoningConfig holds LLM reasoning engine settings.
type ReasoningConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Endpoint    string        `mapstructure:"endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	TopLogprobs int           `mapstructure:"top_logprobs"`
	SchemaName  string        `mapstructure:"schema_name"`
}

// ProfilesConfig holds the customer profile store settings.
type ProfilesConfig struct {
	Path     string        `mapstructure:"path"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UploadConfig holds upload limits for the extract endpoint.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// Load reads configuration from environment variables with the ORVEX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORVEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults (audit log disabled unless a host is set)
	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "orvex")
	v.SetDefault("db.password", "orvex_secret")
	v.SetDefault("db.name", "orvex_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults (archival disabled unless a bucket is set)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.key_prefix", "documents")

	// Extraction quality gate defaults
	v.SetDefault("extract.min_characters", 40)
	v.SetDefault("extract.min_alpha_ratio", 0.2)

	// Remote OCR defaults
	v.SetDefault("ocr.endpoint", "")
	v.SetDefault("ocr.api_key", "")
	v.SetDefault("ocr.timeout", "60s")
	v.SetDefault("ocr.max_concurrent", 4)
	v.SetDefault("ocr.requests_per_second", 2.0)

	// Azure vision defaults
	v.SetDefault("vision.endpoint", "")
	v.SetDefault("vision.api_key", "")

	// Reasoning defaults
	v.SetDefault("reasoning.api_key", "")
	v.SetDefault("reasoning.model", "gpt-4o")
	v.SetDefault("reasoning.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("reasoning.timeout", "90s")
	v.SetDefault("reasoning.max_tokens", 4096)
	v.SetDefault("reasoning.top_logprobs", 5)
	v.SetDefault("reasoning.schema_name", "order_v1")

	// Profiles defaults
	v.SetDefault("profiles.path", "data/customer_profiles.yaml")
	v.SetDefault("profiles.cache_ttl", "5m")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 50)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "ORVEX_SERVER_PORT",
		"server.read_timeout":     "ORVEX_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "ORVEX_SERVER_WRITE_TIMEOUT",
		"server.environment":      "ORVEX_SERVER_ENVIRONMENT",
		"db.host":                 "ORVEX_DB_HOST",
		"db.port":                 "ORVEX_DB_PORT",
		"db.user":                 "ORVEX_DB_USER",
		"db.password":             "ORVEX_DB_PASSWORD",
		"db.name":                 "ORVEX_DB_NAME",
		"db.sslmode":              "ORVEX_DB_SSLMODE",
		"db.max_open":             "ORVEX_DB_MAX_OPEN",
		"db.max_idle":             "ORVEX_DB_MAX_IDLE",
		"s3.region":               "ORVEX_S3_REGION",
		"s3.bucket":               "ORVEX_S3_BUCKET",
		"s3.endpoint":             "ORVEX_S3_ENDPOINT",
		"s3.access_key":           "ORVEX_S3_ACCESS_KEY",
		"s3.secret_key":           "ORVEX_S3_SECRET_KEY",
		"s3.key_prefix":           "ORVEX_S3_KEY_PREFIX",
		"extract.min_characters":  "ORVEX_EXTRACT_MIN_CHARACTERS",
		"extract.min_alpha_ratio": "ORVEX_EXTRACT_MIN_ALPHA_RATIO",
		"ocr.endpoint":            "ORVEX_OCR_ENDPOINT",
		"ocr.api_key":             "ORVEX_OCR_API_KEY",
		"ocr.timeout":             "ORVEX_OCR_TIMEOUT",
		"ocr.max_concurrent":      "ORVEX_OCR_MAX_CONCURRENT",
		"ocr.requests_per_second": "ORVEX_OCR_REQUESTS_PER_SECOND",
		"vision.endpoint":         "ORVEX_VISION_ENDPOINT",
		"vision.api_key":          "ORVEX_VISION_API_KEY",
		"reasoning.api_key":       "ORVEX_REASONING_API_KEY",
		"reasoning.model":         "ORVEX_REASONING_MODEL",
		"reasoning.endpoint":      "ORVEX_REASONING_ENDPOINT",
		"reasoning.timeout":       "ORVEX_REASONING_TIMEOUT",
		"reasoning.max_tokens":    "ORVEX_REASONING_MAX_TOKENS",
		"reasoning.top_logprobs":  "ORVEX_REASONING_TOP_LOGPROBS",
		"reasoning.schema_name":   "ORVEX_REASONING_SCHEMA_NAME",
		"profiles.path":           "ORVEX_PROFILES_PATH",
		"profiles.cache_ttl":      "ORVEX_PROFILES_CACHE_TTL",
		"cors.allowed_origins":    "ORVEX_CORS_ALLOWED_ORIGINS",
		"upload.max_file_size_mb": "ORVEX_UPLOAD_MAX_FILE_SIZE_MB",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if ORVEX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ORVEX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		KeyPrefix: v.GetString("s3.key_prefix"),
	}
	cfg.Extract = ExtractConfig{
		MinCharacters: v.GetInt("extract.min_characters"),
		MinAlphaRatio: v.GetFloat64("extract.min_alpha_ratio"),
	}
	cfg.OCR = OCRConfig{
		Endpoint:          v.GetString("ocr.endpoint"),
		APIKey:            v.GetString("ocr.api_key"),
		Timeout:           v.GetDuration("ocr.timeout"),
		MaxConcurrent:     v.GetInt("ocr.max_concurrent"),
		RequestsPerSecond: v.GetFloat64("ocr.requests_per_second"),
	}
	cfg.Vision = VisionConfig{
		Endpoint: v.GetString("vision.endpoint"),
		APIKey:   v.GetString("vision.api_key"),
	}
	cfg.Reasoning = ReasoningConfig{
		APIKey:      v.GetString("reasoning.api_key"),
		Model:       v.GetString("reasoning.model"),
		Endpoint:    v.GetString("reasoning.endpoint"),
		Timeout:     v.GetDuration("reasoning.timeout"),
		MaxTokens:   v.GetInt("reasoning.max_tokens"),
		TopLogprobs: v.GetInt("reasoning.top_logprobs"),
		SchemaName:  v.GetString("reasoning.schema_name"),
	}
	cfg.Profiles = ProfilesConfig{
		Path:     v.GetString("profiles.path"),
		CacheTTL: v.GetDuration("profiles.cache_ttl"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("cors.allowed_origins")),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
