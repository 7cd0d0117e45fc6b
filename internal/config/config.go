package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/bqusers/internal/credentials"
	"github.com/hetulpatel/bqusers/internal/kafka"
	"github.com/hetulpatel/bqusers/internal/warehouse"
)

const (
	BackendBigQuery = "bigquery"
	BackendSQLite   = "sqlite"

	DefaultUsersCount = 500
)

// Config is everything the binaries read from the environment. The zero-config
// defaults run the plain BigQuery demo.
type Config struct {
	Backend    string
	KeyPath    string
	SQLitePath string
	Target     warehouse.Target
	RowLimit   int
	UsersCount int
	Seed       uint64

	KafkaBrokers      []string
	UsersTopic        string
	MirrorGroup       string
	MirrorConcurrency int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AverageTTL    time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Backend:           strings.ToLower(envString("WAREHOUSE_BACKEND", BackendBigQuery)),
		KeyPath:           os.Getenv("BQ_KEY_PATH"),
		SQLitePath:        os.Getenv("SQLITE_PATH"),
		Target:            warehouse.DefaultTarget(),
		RowLimit:          warehouse.DefaultRowLimit,
		UsersCount:        envInt("DEMO_USERS_COUNT", DefaultUsersCount),
		Seed:              envUint("DEMO_SEED", 0),
		KafkaBrokers:      kafka.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		UsersTopic:        envString("USERS_KAFKA_TOPIC", kafka.DefaultUsersTopic),
		MirrorGroup:       envString("USERS_MIRROR_GROUP", kafka.DefaultMirrorGroup),
		MirrorConcurrency: envInt("USERS_MIRROR_CONCURRENCY", 1),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		AverageTTL:        time.Duration(envInt("AVERAGE_CACHE_TTL_HOURS", 240)) * time.Hour,
	}

	switch cfg.Backend {
	case BackendBigQuery, BackendSQLite:
	default:
		return cfg, fmt.Errorf("unknown WAREHOUSE_BACKEND %q", cfg.Backend)
	}
	if cfg.UsersCount < 0 {
		return cfg, fmt.Errorf("DEMO_USERS_COUNT must not be negative, got %d", cfg.UsersCount)
	}
	if cfg.Backend == BackendBigQuery && cfg.KeyPath == "" {
		path, err := credentials.DefaultPath()
		if err != nil {
			return cfg, err
		}
		cfg.KeyPath = path
	}
	return cfg, nil
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envUint(key string, def uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
