package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything the server needs from its environment. FromEnv
// keeps main lean; defaults suit local development and are overridden in
// deployment.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	Addr          string
	JWTSigningKey string
	// RequestTimeout bounds each handler; transactions inherit it.
	RequestTimeout time.Duration
}

type PostgresConfig struct {
	// URL is a lib/pq connection string. Empty means run without durable
	// storage (in-memory stores), which only makes sense for local dev.
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	// URL in redis:// form. Empty disables Redis and the session store
	// falls back to memory.
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	// Brokers is a comma-separated seed list. Empty disables the audit
	// publisher; events stay in the outbox.
	Brokers []string
	Topic   string
}

func FromEnv() Config {
	addr := os.Getenv("GIVEBRIDGE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "givebridge.lifecycle"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Config{
		Server: ServerConfig{
			Addr:           addr,
			JWTSigningKey:  jwtSigningKey,
			RequestTimeout: 30 * time.Second,
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("POSTGRES_URL"),
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
	}
}
