package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Token store backends.
const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

// Config is the runtime configuration assembled from the environment and an
// optional .env file.
type Config struct {
	Env string

	Log      LogConfig
	Database DatabaseConfig
	LMS      LMSConfig
	Redis    RedisConfig
	Google   GoogleConfig
	Calendar CalendarConfig
	Schedule ScheduleConfig
	Metrics  MetricsConfig
}

type LogConfig struct {
	Level  string
	Format string
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

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// LMSConfig locates the learning management system database.
type LMSConfig struct {
	Database    DatabaseConfig
	TablePrefix string
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GoogleConfig holds the OAuth client and where person tokens are kept.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenStore   string
	TokenDir     string
}

// CalendarConfig controls how lessons appear in remote calendars.
type CalendarConfig struct {
	CalendarID  string
	SourceTitle string
	SourceURL   string
	TimeZone    string
	LookBack    time.Duration
	LookAhead   time.Duration
}

// ScheduleConfig covers sheet parsing and the upload watcher.
type ScheduleConfig struct {
	LayoutFile    string
	UploadDir     string
	WatchInterval time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Load reads envFile (".env" when empty) if present and layers the process
// environment over it.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	cfg := &Config{Env: v.GetString("ENV")}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Database = databaseConfig(v, "DB")
	cfg.LMS = LMSConfig{
		Database:    databaseConfig(v, "LMS_DB"),
		TablePrefix: v.GetString("LMS_TABLE_PREFIX"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.Google = GoogleConfig{
		ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		TokenStore:   strings.ToLower(v.GetString("TOKEN_STORE")),
		TokenDir:     v.GetString("TOKEN_DIR"),
	}

	cfg.Calendar = CalendarConfig{
		CalendarID:  v.GetString("CALENDAR_ID"),
		SourceTitle: v.GetString("CALENDAR_SOURCE_TITLE"),
		SourceURL:   v.GetString("CALENDAR_SOURCE_URL"),
		TimeZone:    v.GetString("CALENDAR_TIMEZONE"),
		LookBack:    parseDuration(v.GetString("CALENDAR_LOOKBACK"), 30*24*time.Hour),
		LookAhead:   parseDuration(v.GetString("CALENDAR_LOOKAHEAD"), 14*24*time.Hour),
	}

	cfg.Schedule = ScheduleConfig{
		LayoutFile:    v.GetString("SCHEDULE_LAYOUT_FILE"),
		UploadDir:     v.GetString("SCHEDULE_UPLOAD_DIR"),
		WatchInterval: parseDuration(v.GetString("WATCH_INTERVAL"), 30*time.Second),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("METRICS_ENABLED"),
		Addr:    v.GetString("METRICS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later at first use.
func (c *Config) Validate() error {
	switch c.Google.TokenStore {
	case TokenStoreFile, TokenStoreRedis:
	default:
		return fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", TokenStoreFile, TokenStoreRedis, c.Google.TokenStore)
	}
	if _, err := time.LoadLocation(c.Calendar.TimeZone); err != nil {
		return fmt.Errorf("invalid CALENDAR_TIMEZONE %q: %w", c.Calendar.TimeZone, err)
	}
	if c.Calendar.SourceTitle == "" {
		return errors.New("CALENDAR_SOURCE_TITLE must not be empty")
	}
	u, err := url.Parse(c.Calendar.SourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CALENDAR_SOURCE_URL must be an absolute http(s) URL, got %q", c.Calendar.SourceURL)
	}
	if c.Schedule.WatchInterval < time.Second {
		return fmt.Errorf("WATCH_INTERVAL must be at least 1s, got %s", c.Schedule.WatchInterval)
	}
	return nil
}

func databaseConfig(v *viper.Viper, prefix string) DatabaseConfig {
	return DatabaseConfig{
		Host:         v.GetString(prefix + "_HOST"),
		Port:         v.GetInt(prefix + "_PORT"),
		User:         v.GetString(prefix + "_USER"),
		Password:     v.GetString(prefix + "_PASSWORD"),
		Name:         v.GetString(prefix + "_NAME"),
		SSLMode:      v.GetString(prefix + "_SSL_MODE"),
		MaxOpenConns: v.GetInt(prefix + "_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt(prefix + "_MAX_IDLE_CONNS"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "schedule")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("LMS_DB_HOST", "localhost")
	v.SetDefault("LMS_DB_PORT", 5432)
	v.SetDefault("LMS_DB_USER", "moodle")
	v.SetDefault("LMS_DB_PASSWORD", "moodle")
	v.SetDefault("LMS_DB_NAME", "moodle")
	v.SetDefault("LMS_DB_SSL_MODE", "disable")
	v.SetDefault("LMS_DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("LMS_DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("LMS_TABLE_PREFIX", "mdl_")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "schedsync:")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("TOKEN_STORE", TokenStoreFile)
	v.SetDefault("TOKEN_DIR", "")

	v.SetDefault("CALENDAR_ID", "primary")
	v.SetDefault("CALENDAR_SOURCE_TITLE", "scheduleNUBIP")
	v.SetDefault("CALENDAR_SOURCE_URL", "https://localhost:8000")
	v.SetDefault("CALENDAR_TIMEZONE", "Europe/Kyiv")
	v.SetDefault("CALENDAR_LOOKBACK", "720h")
	v.SetDefault("CALENDAR_LOOKAHEAD", "336h")

	v.SetDefault("SCHEDULE_LAYOUT_FILE", "")
	v.SetDefault("SCHEDULE_UPLOAD_DIR", "./uploads")
	v.SetDefault("WATCH_INTERVAL", "30s")

	v.SetDefault("METRICS_ENABLED", false)
	v.SetDefault("METRICS_ADDR", ":9090")
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
