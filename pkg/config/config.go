package config

import (
	"errors"
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
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Content   ContentConfig
	Dashboard DashboardConfig
	Fanout    FanoutConfig
	Export    ExportConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig covers token validation only; token issuance lives in the
// external identity service.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ContentConfig points at the external interactive-activity content store.
type ContentConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	CacheEnabled   bool
}

// DashboardConfig bounds the list sections of dashboard payloads.
type DashboardConfig struct {
	RecentTemplatesLimit   int
	UpcomingTemplatesLimit int
}

// FanoutConfig guards template fan-out volume.
type FanoutConfig struct {
	MaxTasksPerTemplate int
}

// ExportConfig drives background grade-sheet exports and their signed
// download links.
type ExportConfig struct {
	Dir       string
	URLSecret string
	URLTTL    time.Duration
	Workers   int
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Content = ContentConfig{
		BaseURL:        v.GetString("CONTENT_BASE_URL"),
		RequestTimeout: parseDuration(v.GetString("CONTENT_REQUEST_TIMEOUT"), 5*time.Second),
		CacheTTL:       parseDuration(v.GetString("CONTENT_CACHE_TTL"), 10*time.Minute),
		CacheEnabled:   v.GetBool("CONTENT_CACHE_ENABLED"),
	}

	cfg.Dashboard = DashboardConfig{
		RecentTemplatesLimit:   v.GetInt("DASHBOARD_RECENT_TEMPLATES_LIMIT"),
		UpcomingTemplatesLimit: v.GetInt("DASHBOARD_UPCOMING_TEMPLATES_LIMIT"),
	}

	cfg.Fanout = FanoutConfig{
		MaxTasksPerTemplate: v.GetInt("FANOUT_MAX_TASKS_PER_TEMPLATE"),
	}

	cfg.Export = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		URLSecret: v.GetString("EXPORT_URL_SECRET"),
		URLTTL:    parseDuration(v.GetString("EXPORT_URL_TTL"), 24*time.Hour),
		Workers:   v.GetInt("EXPORT_WORKERS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CONTENT_BASE_URL", "http://localhost:9000")
	v.SetDefault("CONTENT_REQUEST_TIMEOUT", "5s")
	v.SetDefault("CONTENT_CACHE_TTL", "10m")
	v.SetDefault("CONTENT_CACHE_ENABLED", false)

	v.SetDefault("DASHBOARD_RECENT_TEMPLATES_LIMIT", 5)
	v.SetDefault("DASHBOARD_UPCOMING_TEMPLATES_LIMIT", 5)

	v.SetDefault("FANOUT_MAX_TASKS_PER_TEMPLATE", 2000)

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_URL_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_URL_TTL", "24h")
	v.SetDefault("EXPORT_WORKERS", 2)
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
