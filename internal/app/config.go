package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// KVBackend — хранилище корзины и токена.
type KVBackend string

const (
	KVBackendMemory   KVBackend = "memory"
	KVBackendSQLite   KVBackend = "sqlite"
	KVBackendRedis    KVBackend = "redis"
	KVBackendPostgres KVBackend = "postgres"
)

// Config описывает настройки запуска сервиса корзины.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	KVBackend           KVBackend
	SQLitePath          string
	RedisURL            string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers []string

	RestaurantOrigin domain.Coordinates
	SnowflakeNode    int64
	SubmissionTTL    time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает настройки для локального запуска рядом с mock-backend.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                    ":50051",
		MetricsAddr:                 ":9090",
		APIBaseURL:                  "http://localhost:8000",
		APITimeout:                  10 * time.Second,
		KVBackend:                   KVBackendSQLite,
		SQLitePath:                  "foodorder.db",
		PostgresAutoMigrate:         true,
		RestaurantOrigin:            domain.Coordinates{Lat: 55.7558, Lon: 37.6173},
		SnowflakeNode:               1,
		SubmissionTTL:               24 * time.Hour,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            100 * time.Millisecond,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// LoadConfigFromEnv подгружает .env-файлы (если есть) и накладывает
// переменные окружения на DefaultConfig.
func LoadConfigFromEnv(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return LoadConfig(os.Getenv)
}

// LoadConfig накладывает значения из getenv на DefaultConfig.
func LoadConfig(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	env := envReader{getenv: getenv}

	env.str("FOODORDER_GRPC_ADDR", &cfg.GRPCAddr)
	env.str("FOODORDER_METRICS_ADDR", &cfg.MetricsAddr)
	env.str("FOODORDER_API_URL", &cfg.APIBaseURL)
	env.str("FOODORDER_API_TOKEN", &cfg.APIToken)
	env.duration("FOODORDER_API_TIMEOUT", &cfg.APITimeout)

	if v := env.get("FOODORDER_KV_BACKEND"); v != "" {
		cfg.KVBackend = KVBackend(strings.ToLower(v))
	}
	env.str("FOODORDER_SQLITE_PATH", &cfg.SQLitePath)
	env.str("REDIS_URL", &cfg.RedisURL)
	env.str("FOODORDER_POSTGRES_DSN", &cfg.PostgresDSN)
	env.boolean("FOODORDER_POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)

	if v := env.get("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitBrokers(v)
	}

	env.float("FOODORDER_RESTAURANT_LAT", &cfg.RestaurantOrigin.Lat)
	env.float("FOODORDER_RESTAURANT_LON", &cfg.RestaurantOrigin.Lon)
	env.integer64("FOODORDER_SNOWFLAKE_NODE", &cfg.SnowflakeNode)
	env.duration("FOODORDER_SUBMISSION_TTL", &cfg.SubmissionTTL)

	env.duration("FOODORDER_OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	env.integer("FOODORDER_OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	env.integer("FOODORDER_OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	env.duration("FOODORDER_OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)
	env.duration("FOODORDER_IDEMPOTENCY_CLEANUP_INTERVAL", &cfg.IdempotencyCleanupInterval)
	env.integer("FOODORDER_IDEMPOTENCY_CLEANUP_BATCH_SIZE", &cfg.IdempotencyCleanupBatchSize)

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// InFlightLease — сколько отправка заказа может висеть in_flight, прежде чем
// её можно повторить. Два таймаута API: ответ на первую попытку уже не придёт.
func (c Config) InFlightLease() time.Duration {
	if c.APITimeout <= 0 {
		return 0
	}
	return 2 * c.APITimeout
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) get(key string) string {
	return strings.TrimSpace(e.getenv(key))
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (e *envReader) str(key string, dst *string) {
	if v := e.get(key); v != "" {
		*dst = v
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v := e.get(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

func (e *envReader) float(key string, dst *float64) {
	v := e.get(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) integer(key string, dst *int) {
	v := e.get(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) integer64(key string, dst *int64) {
	v := e.get(key)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) boolean(key string, dst *bool) {
	v := e.get(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}
