// Package config provides application configuration loaded from environment
// variables, optionally seeded from a local .env file.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
	AllowedOrigins       []string      // CORS and WebSocket origins; empty = allow all outside production
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds JWT signing settings.
type JWTConfig struct {
	AccessSecret  string        // must be set
	RefreshSecret string        // must be set
	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 720h (30 days)
}

// LeagueConfig holds the virtual-balance rules applied to every league.
type LeagueConfig struct {
	DefaultStartingBalance float64 // default 1000
	MinStartingBalance     float64 // default 100
	MaxStartingBalance     float64 // default 10000
	MinBet                 float64 // default 1
	MaxBet                 float64 // default 10000
}

// RedisConfig holds the leaderboard cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	LeaderboardTTL time.Duration // default 30s
}

// KafkaConfig holds the domain event publisher settings. Empty Brokers
// disables publishing.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string // default "betleague"
}

// SchedulerConfig toggles the housekeeping cron jobs.
type SchedulerConfig struct {
	Enabled            bool   // default true
	CloseTicketsSpec   string // default "@every 1m"
	CompleteLeagueSpec string // default "@every 5m"
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	League    LeagueConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// All failures are reported together via errors.Join.
func (c *Config) Validate() error {
	var errs []error

	// JWT secrets are mandatory
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	l := c.League
	if l.MinStartingBalance <= 0 || l.MinStartingBalance > l.MaxStartingBalance {
		errs = append(errs, fmt.Errorf(
			"LEAGUE_MIN_STARTING_BALANCE (%.2f) must be positive and <= LEAGUE_MAX_STARTING_BALANCE (%.2f)",
			l.MinStartingBalance, l.MaxStartingBalance,
		))
	}
	if l.DefaultStartingBalance < l.MinStartingBalance || l.DefaultStartingBalance > l.MaxStartingBalance {
		errs = append(errs, fmt.Errorf(
			"LEAGUE_DEFAULT_STARTING_BALANCE must be within [%.2f, %.2f], got %.2f",
			l.MinStartingBalance, l.MaxStartingBalance, l.DefaultStartingBalance,
		))
	}
	if l.MinBet <= 0 || l.MinBet > l.MaxBet {
		errs = append(errs, fmt.Errorf(
			"LEAGUE_MIN_BET (%.2f) must be positive and <= LEAGUE_MAX_BET (%.2f)", l.MinBet, l.MaxBet,
		))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails; call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
		AllowedOrigins:       getList("CORS_ALLOWED_ORIGINS"),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "betleague"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── League ────────────────────────────────────────────────────────────────
	defBal, err := getFloat("LEAGUE_DEFAULT_STARTING_BALANCE", 1000)
	if err != nil {
		return nil, fmt.Errorf("LEAGUE_DEFAULT_STARTING_BALANCE: %w", err)
	}
	minBal, err := getFloat("LEAGUE_MIN_STARTING_BALANCE", 100)
	if err != nil {
		return nil, fmt.Errorf("LEAGUE_MIN_STARTING_BALANCE: %w", err)
	}
	maxBal, err := getFloat("LEAGUE_MAX_STARTING_BALANCE", 10000)
	if err != nil {
		return nil, fmt.Errorf("LEAGUE_MAX_STARTING_BALANCE: %w", err)
	}
	minBet, err := getFloat("LEAGUE_MIN_BET", 1)
	if err != nil {
		return nil, fmt.Errorf("LEAGUE_MIN_BET: %w", err)
	}
	maxBet, err := getFloat("LEAGUE_MAX_BET", 10000)
	if err != nil {
		return nil, fmt.Errorf("LEAGUE_MAX_BET: %w", err)
	}

	cfg.League = LeagueConfig{
		DefaultStartingBalance: defBal,
		MinStartingBalance:     minBal,
		MaxStartingBalance:     maxBal,
		MinBet:                 minBet,
		MaxBet:                 maxBet,
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	cfg.Redis = RedisConfig{
		Addr:           getEnv("REDIS_ADDR", ""),
		Password:       getEnv("REDIS_PASSWORD", ""),
		DB:             redisDB,
		LeaderboardTTL: getDuration("REDIS_LEADERBOARD_TTL", 30*time.Second),
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	cfg.Kafka = KafkaConfig{
		Brokers:     getList("KAFKA_BROKERS"),
		TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "betleague"),
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	cfg.Scheduler = SchedulerConfig{
		Enabled:            getBool("SCHEDULER_ENABLED", true),
		CloseTicketsSpec:   getEnv("SCHEDULER_CLOSE_TICKETS", "@every 1m"),
		CompleteLeagueSpec: getEnv("SCHEDULER_COMPLETE_LEAGUES", "@every 5m"),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getList splits a comma-separated env var, dropping empty items.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Log warning and fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
