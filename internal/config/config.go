package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	CORS      CORSConfig
	SMTP      SMTPConfig
	Gateway   GatewayConfig
	Notify    NotifyConfig
	Heartbeat HeartbeatConfig
	Firebase  FirebaseConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// GatewayConfig configures the outbound chat-gateway connection
type GatewayConfig struct {
	URL            string        // websocket URL of the chat gateway
	Token          string        // gateway API token (sent on dial)
	ConnectTimeout time.Duration // dial deadline per attempt
	SendTimeout    time.Duration // write deadline per outbound message
	RetryDelay     time.Duration // pause between reconnect attempts
}

// NotifyConfig configures the daily expiry-notification run
type NotifyConfig struct {
	Hour int // local hour of day (0-23) the scheduler fires
}

// HeartbeatConfig configures the liveness aggregator
type HeartbeatConfig struct {
	FlushInterval time.Duration
	ActiveWindow  time.Duration
}

type FirebaseConfig struct {
	CredentialsFile string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	jwtExpiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "24h"))
	if err != nil {
		jwtExpiry = 24 * time.Hour
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "licgate"),
			Password: getEnv("DB_PASSWORD", "licgate"),
			Name:     getEnv("DB_NAME", "licgate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: jwtExpiry,
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "licgate-pairing"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "mailpit"),
			Port:     getEnv("SMTP_PORT", "1025"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@licgate.local"),
			FromName: getEnv("SMTP_FROM_NAME", "LicGate"),
		},
		Gateway: GatewayConfig{
			URL:            getEnv("GATEWAY_URL", "ws://localhost:9001/session"),
			Token:          getEnv("GATEWAY_TOKEN", ""),
			ConnectTimeout: getDuration("GATEWAY_CONNECT_TIMEOUT", 15*time.Second),
			SendTimeout:    getDuration("GATEWAY_SEND_TIMEOUT", 10*time.Second),
			RetryDelay:     getDuration("GATEWAY_RETRY_DELAY", 5*time.Second),
		},
		Notify: NotifyConfig{
			Hour: getInt("NOTIFY_HOUR", 9),
		},
		Heartbeat: HeartbeatConfig{
			FlushInterval: getDuration("HEARTBEAT_FLUSH_INTERVAL", 60*time.Second),
			ActiveWindow:  getDuration("HEARTBEAT_ACTIVE_WINDOW", 10*time.Minute),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
