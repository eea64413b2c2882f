package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Timetable  TimetableConfig
	Scheduler  SchedulerConfig
	Migrations MigrationsConfig
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

// JWTConfig holds the shared secret used to verify tenant tokens issued upstream.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig governs caching of day-grouped timetable projections.
type TimetableConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SchedulerConfig tunes the weekly slot booking pipeline.
type SchedulerConfig struct {
	OpeningTime   string
	ClosingTime   string
	LockTimeout   time.Duration
	MutationRPS   float64
	MutationBurst int
}

// MigrationsConfig toggles schema migration on boot.
type MigrationsConfig struct {
	AutoMigrate bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
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

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		CacheEnabled: v.GetBool("ENABLE_TIMETABLE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Scheduler = SchedulerConfig{
		OpeningTime:   strings.TrimSpace(v.GetString("SCHEDULER_OPENING_TIME")),
		ClosingTime:   strings.TrimSpace(v.GetString("SCHEDULER_CLOSING_TIME")),
		LockTimeout:   parseDuration(v.GetString("SCHEDULER_LOCK_TIMEOUT"), 5*time.Second),
		MutationRPS:   v.GetFloat64("SCHEDULER_MUTATION_RPS"),
		MutationBurst: v.GetInt("SCHEDULER_MUTATION_BURST"),
	}
	if err := cfg.Scheduler.validate(); err != nil {
		return nil, err
	}

	cfg.Migrations = MigrationsConfig{AutoMigrate: v.GetBool("AUTO_MIGRATE")}

	return cfg, nil
}

func (c SchedulerConfig) validate() error {
	if !clockPattern.MatchString(c.OpeningTime) {
		return fmt.Errorf("SCHEDULER_OPENING_TIME %q must use HH:MM", c.OpeningTime)
	}
	if !clockPattern.MatchString(c.ClosingTime) {
		return fmt.Errorf("SCHEDULER_CLOSING_TIME %q must use HH:MM", c.ClosingTime)
	}
	if c.OpeningTime >= c.ClosingTime {
		return fmt.Errorf("scheduler opening time %s must be before closing time %s", c.OpeningTime, c.ClosingTime)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_TIMETABLE_CACHE", false)
	v.SetDefault("TIMETABLE_CACHE_TTL", "5m")

	v.SetDefault("SCHEDULER_OPENING_TIME", "06:00")
	v.SetDefault("SCHEDULER_CLOSING_TIME", "22:00")
	v.SetDefault("SCHEDULER_LOCK_TIMEOUT", "5s")
	v.SetDefault("SCHEDULER_MUTATION_RPS", 5)
	v.SetDefault("SCHEDULER_MUTATION_BURST", 10)

	v.SetDefault("AUTO_MIGRATE", false)
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
