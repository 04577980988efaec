package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/attestra/credential-platform/internal/cache"
)

type AppConfig struct {
	App      AppSettings      `mapstructure:"app"`
	Postgres PostgresSettings `mapstructure:"postgres"`
	Redis    RedisSettings    `mapstructure:"redis"`
	Kafka    KafkaSettings    `mapstructure:"kafka"`
	Session  SessionSettings  `mapstructure:"session"`
	Cache    CacheSettings    `mapstructure:"cache"`
	HTTP     HTTPSettings     `mapstructure:"http"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	PingTimeout       time.Duration `mapstructure:"ping_timeout"`
}

// RedisSettings configures the Redis connection backing the shared subject
// snapshot projection.
type RedisSettings struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	DB             int           `mapstructure:"db"`
	Password       string        `mapstructure:"password"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	SnapshotPrefix string        `mapstructure:"snapshot_prefix"`
	SnapshotTTL    time.Duration `mapstructure:"snapshot_ttl"`
}

// KafkaSettings configures the Kafka producer for domain events.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SessionSettings configures verification of the externally issued session
// credential.
type SessionSettings struct {
	SigningSecret string `mapstructure:"signing_secret"`
	Issuer        string `mapstructure:"issuer"`
}

// TierSettings carries the three durations of one staleness tier.
type TierSettings struct {
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	RevalidateAfter time.Duration `mapstructure:"revalidate_after"`
	HardExpireAfter time.Duration `mapstructure:"hard_expire_after"`
}

// CacheSettings configures the entry store's staleness tiers. All nine
// durations are externally configurable; this is the cache's entire
// environment surface.
type CacheSettings struct {
	TierShort      TierSettings  `mapstructure:"tier_short"`
	TierMedium     TierSettings  `mapstructure:"tier_medium"`
	TierLong       TierSettings  `mapstructure:"tier_long"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
}

// HTTPSettings configures the transport layer.
type HTTPSettings struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ComputeTimeout time.Duration `mapstructure:"compute_timeout"`
}

// Tiers builds and validates the tier registry. Ordering violations surface
// here, at startup, never at request time.
func (c CacheSettings) Tiers() (cache.Tiers, error) {
	return cache.NewTiers(
		cache.TierDurations(c.TierShort),
		cache.TierDurations(c.TierMedium),
		cache.TierDurations(c.TierLong),
	)
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("CRED")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.ping_timeout",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.snapshot_prefix",
		"redis.snapshot_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"session.signing_secret",
		"session.issuer",
		"cache.tier_short.stale_after",
		"cache.tier_short.revalidate_after",
		"cache.tier_short.hard_expire_after",
		"cache.tier_medium.stale_after",
		"cache.tier_medium.revalidate_after",
		"cache.tier_medium.hard_expire_after",
		"cache.tier_long.stale_after",
		"cache.tier_long.revalidate_after",
		"cache.tier_long.hard_expire_after",
		"cache.refresh_timeout",
		"http.allowed_origins",
		"http.compute_timeout",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Fail fast on a broken tier configuration.
	if _, err := cfg.Cache.Tiers(); err != nil {
		return nil, fmt.Errorf("validate cache tiers: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "credential-platform")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "credential")
	v.SetDefault("postgres.password", "credential_password")
	v.SetDefault("postgres.database", "credential")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.ping_timeout", "2s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.snapshot_prefix", "credential:subject_info")
	v.SetDefault("redis.snapshot_ttl", "5m")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "credential")

	v.SetDefault("session.signing_secret", "")
	v.SetDefault("session.issuer", "credential-identity")

	v.SetDefault("cache.tier_short.stale_after", "30s")
	v.SetDefault("cache.tier_short.revalidate_after", "60s")
	v.SetDefault("cache.tier_short.hard_expire_after", "5m")
	v.SetDefault("cache.tier_medium.stale_after", "60s")
	v.SetDefault("cache.tier_medium.revalidate_after", "2m")
	v.SetDefault("cache.tier_medium.hard_expire_after", "15m")
	v.SetDefault("cache.tier_long.stale_after", "10m")
	v.SetDefault("cache.tier_long.revalidate_after", "30m")
	v.SetDefault("cache.tier_long.hard_expire_after", "2h")
	v.SetDefault("cache.refresh_timeout", "10s")

	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.compute_timeout", "5s")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "CRED_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
