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

// State backends understood by StateConfig.Backend.
const (
	StateBackendPostgres = "postgres"
	StateBackendMemory   = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	State    StateConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	School   SchoolConfig
	Accounts AccountsConfig
	Remote   RemoteConfig
	NATS     NATSConfig
	Reports  ReportsConfig
}

// StateConfig selects the backend for the persisted key namespace.
type StateConfig struct {
	Backend string
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

// CacheConfig governs the Redis backed view-model cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchoolConfig describes the school identity used in sessions and reports.
type SchoolConfig struct {
	Name        string
	EmailDomain string
	LogoURL     string
}

// AccountsConfig holds the built-in administrator and fallback teacher credentials.
type AccountsConfig struct {
	AdminName              string
	AdminPassword          string
	DefaultTeacherPassword string
}

// RemoteConfig configures the hosted document database used for the login roster.
type RemoteConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
	Collection      string
	RosterDocument  string
	ProfileDocument string
	Timeout         time.Duration
}

// NATSConfig toggles the cross-instance change relay.
type NATSConfig struct {
	URL     string
	Subject string
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.State = StateConfig{Backend: strings.ToLower(v.GetString("STATE_BACKEND"))}

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

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("VIEW_CACHE_TTL"), 5*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.School = SchoolConfig{
		Name:        v.GetString("SCHOOL_NAME"),
		EmailDomain: v.GetString("SCHOOL_EMAIL_DOMAIN"),
		LogoURL:     v.GetString("SCHOOL_LOGO_URL"),
	}

	cfg.Accounts = AccountsConfig{
		AdminName:              v.GetString("ADMIN_NAME"),
		AdminPassword:          v.GetString("ADMIN_PASSWORD"),
		DefaultTeacherPassword: v.GetString("DEFAULT_TEACHER_PASSWORD"),
	}

	cfg.Remote = RemoteConfig{
		Enabled:         v.GetBool("REMOTE_ENABLED"),
		ProjectID:       v.GetString("REMOTE_PROJECT_ID"),
		CredentialsFile: v.GetString("REMOTE_CREDENTIALS_FILE"),
		CredentialsJSON: v.GetString("REMOTE_CREDENTIALS_JSON"),
		Collection:      v.GetString("REMOTE_COLLECTION"),
		RosterDocument:  v.GetString("REMOTE_ROSTER_DOCUMENT"),
		ProfileDocument: v.GetString("REMOTE_PROFILE_DOCUMENT"),
		Timeout:         parseDuration(v.GetString("REMOTE_TIMEOUT"), 10*time.Second),
	}

	cfg.NATS = NATSConfig{
		URL:     v.GetString("NATS_URL"),
		Subject: v.GetString("NATS_SUBJECT"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STATE_BACKEND", StateBackendPostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "smk_student_hub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("VIEW_CACHE_TTL", "5m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "smk-student-hub")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHOOL_NAME", "SMK Negeri")
	v.SetDefault("SCHOOL_EMAIL_DOMAIN", "smk.sch.id")
	v.SetDefault("SCHOOL_LOGO_URL", "")

	v.SetDefault("ADMIN_NAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("DEFAULT_TEACHER_PASSWORD", "guru123")

	v.SetDefault("REMOTE_ENABLED", false)
	v.SetDefault("REMOTE_PROJECT_ID", "")
	v.SetDefault("REMOTE_CREDENTIALS_FILE", "")
	v.SetDefault("REMOTE_CREDENTIALS_JSON", "")
	v.SetDefault("REMOTE_COLLECTION", "sekolah")
	v.SetDefault("REMOTE_ROSTER_DOCUMENT", "guru")
	v.SetDefault("REMOTE_PROFILE_DOCUMENT", "profil")
	v.SetDefault("REMOTE_TIMEOUT", "10s")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT", "smkhub.state.changed")

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)
}

// viper reports a missing explicit config file as a path error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such file")
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
