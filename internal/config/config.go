package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Content     ContentConfig
	Kafka       KafkaConfig
	Logger      LoggerConfig
	CORSOrigins []string
	SwaggerHost string
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port string
}

// DatabaseConfig selects the GORM dialect and connection string.
type DatabaseConfig struct {
	Driver string // mysql, postgres or sqlite
	DSN    string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig carries the shared secret used for password digests and token signing.
type AuthConfig struct {
	SecretKey             string
	AccessTokenTTLMinutes int
}

// ContentConfig selects where post bodies are read from.
type ContentConfig struct {
	Backend string // fs or s3
	Dir     string

	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// KafkaConfig configures domain event publishing. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "mysql")),
			DSN:    getEnv("DATABASE_DSN", "mai_user:mai_password@tcp(localhost:3306)/mai_db?charset=utf8mb4&parseTime=True&loc=UTC"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SecretKey:             getEnv("SECRET_KEY", "change-me"),
			AccessTokenTTLMinutes: getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),
		},
		Content: ContentConfig{
			Backend:        strings.ToLower(getEnv("CONTENT_BACKEND", "fs")),
			Dir:            getEnv("CONTENT_DIR", "content"),
			S3Bucket:       os.Getenv("CONTENT_S3_BUCKET"),
			S3Prefix:       os.Getenv("CONTENT_S3_PREFIX"),
			S3Region:       getEnv("CONTENT_S3_REGION", "us-east-1"),
			S3BaseEndpoint: os.Getenv("CONTENT_S3_ENDPOINT"),
			S3AccessKey:    os.Getenv("CONTENT_S3_ACCESS_KEY"),
			S3SecretKey:    os.Getenv("CONTENT_S3_SECRET_KEY"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "blog_events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		CORSOrigins: splitList(getEnv("BACKEND_CORS_ORIGINS", "http://localhost:5173")),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

// splitList turns "a, b,,c" into [a b c].
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
