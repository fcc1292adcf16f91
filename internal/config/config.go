package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port string

	DB DBConfig

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins []string

	Location     *time.Location
	Holidays     []Holiday
	BroadcastBuf int

	Log LogConfig
}

// DBConfig selects and tunes the store.
type DBConfig struct {
	Driver       string // "postgres" or "sqlite"
	DSN          string
	MaxOpenConns int
	TxTimeout    time.Duration
}

type LogConfig struct {
	File   string
	Level  string
	Stdout bool
}

// Holiday is informational only; nothing in scheduling consults it.
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found – relying on env vars")
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "supersecret"),
		CORSOrigins: getList("CORS_ORIGINS"),
		Log: LogConfig{
			File:   getEnv("LOG_FILE", "./logs/app.log"),
			Level:  getEnv("LOG_LEVEL", "info"),
			Stdout: getBool("LOG_STDOUT", false),
		},
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 72*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.BroadcastBuf, err = getInt("BROADCAST_BUFFER", 256); err != nil {
		return cfg, err
	}
	if cfg.DB, err = loadDB(); err != nil {
		return cfg, err
	}

	tz := getEnv("CLOCK_TZ", "Local")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return cfg, fmt.Errorf("CLOCK_TZ %q: %w", tz, err)
	}

	if path := os.Getenv("HOLIDAYS_FILE"); path != "" {
		if cfg.Holidays, err = loadHolidays(path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func loadDB() (DBConfig, error) {
	db := DBConfig{Driver: getEnv("DB_DRIVER", "postgres")}

	var err error
	if db.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return db, err
	}
	if db.TxTimeout, err = getDuration("DB_TX_TIMEOUT", 5*time.Second); err != nil {
		return db, err
	}

	switch db.Driver {
	case "postgres":
		db.DSN, err = postgresDSN()
	case "sqlite":
		db.DSN = getEnv("SQLITE_PATH", "routelink.db")
	default:
		err = fmt.Errorf("DB_DRIVER %q: want postgres or sqlite", db.Driver)
	}
	return db, err
}

func loadHolidays(path string) ([]Holiday, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays: %w", err)
	}
	var out []Holiday
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse holidays %s: %w", path, err)
	}
	return out, nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getList splits a comma-separated variable, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
