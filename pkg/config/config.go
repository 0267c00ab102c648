package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env           string
	Port          int
	PublicBaseURL string

	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	EBooks      EBooksConfig
	Grades      GradesConfig
	FileCleanup FileCleanupConfig
	Portal      PortalConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EBooksConfig controls PDF storage and download links.
type EBooksConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	SignedURLSecret  string
	SignedURLTTL     time.Duration
}

// GradesConfig toggles caching of class grade lists.
type GradesConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// FileCleanupConfig sizes the background queue removing replaced PDFs.
type FileCleanupConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// PortalConfig configures the server-rendered teacher pages.
type PortalConfig struct {
	Port           int
	BackendURL     string
	Classes        []string
	DefaultClass   string
	RequestTimeout time.Duration
	SessionTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("EBOOKS_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 25 * 1024 * 1024
	}
	cfg.EBooks = EBooksConfig{
		StorageDir:       v.GetString("EBOOKS_STORAGE_DIR"),
		MaxFileSizeBytes: maxFileSize,
		SignedURLSecret:  v.GetString("EBOOKS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("EBOOKS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Grades = GradesConfig{
		CacheEnabled: v.GetBool("ENABLE_GRADE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("GRADE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.FileCleanup = FileCleanupConfig{
		Workers:    v.GetInt("FILE_CLEANUP_WORKERS"),
		MaxRetries: v.GetInt("FILE_CLEANUP_RETRIES"),
		RetryDelay: parseDuration(v.GetString("FILE_CLEANUP_RETRY_DELAY"), 5*time.Second),
	}

	classes := splitAndTrim(v.GetString("PORTAL_CLASSES"))
	defaultClass := strings.TrimSpace(v.GetString("PORTAL_DEFAULT_CLASS"))
	if len(classes) > 0 && !contains(classes, defaultClass) {
		defaultClass = classes[0]
	}
	cfg.Portal = PortalConfig{
		Port:           v.GetInt("PORTAL_PORT"),
		BackendURL:     strings.TrimRight(v.GetString("PORTAL_BACKEND_URL"), "/"),
		Classes:        classes,
		DefaultClass:   defaultClass,
		RequestTimeout: parseDuration(v.GetString("PORTAL_REQUEST_TIMEOUT"), 0),
		SessionTTL:     parseDuration(v.GetString("PORTAL_SESSION_TTL"), 12*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:5000")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_teacher_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("EBOOKS_STORAGE_DIR", "./uploads/ebooks")
	v.SetDefault("EBOOKS_MAX_FILE_SIZE", 25*1024*1024)
	v.SetDefault("EBOOKS_SIGNED_URL_SECRET", "dev_ebooks_secret")
	v.SetDefault("EBOOKS_SIGNED_URL_TTL", "24h")

	v.SetDefault("ENABLE_GRADE_CACHE", false)
	v.SetDefault("GRADE_CACHE_TTL", "5m")

	v.SetDefault("FILE_CLEANUP_WORKERS", 1)
	v.SetDefault("FILE_CLEANUP_RETRIES", 3)
	v.SetDefault("FILE_CLEANUP_RETRY_DELAY", "5s")

	v.SetDefault("PORTAL_PORT", 8081)
	v.SetDefault("PORTAL_BACKEND_URL", "http://localhost:5000")
	v.SetDefault("PORTAL_CLASSES", "10A,10B,10C,9A,9B")
	v.SetDefault("PORTAL_DEFAULT_CLASS", "10A")
	v.SetDefault("PORTAL_REQUEST_TIMEOUT", "")
	v.SetDefault("PORTAL_SESSION_TTL", "12h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
