package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoAdminKey is returned by Load when neither ADMIN_KEY nor ADMIN_KEY_HASH is set.
var ErrNoAdminKey = errors.New("ADMIN_KEY or ADMIN_KEY_HASH must be set")

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// DSN builds the key/value connection string understood by pgx.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

type Config struct {
	ServerAddr   string
	DB           DBConfig
	RedisAddress string // empty keeps the cache in-process
	CacheTTL     time.Duration
	DeliveryFee  decimal.Decimal
	AdminKeyHash []byte
	JWTSecret    string
	TokenTTL     time.Duration
	PhoneRegion  string
	LogFile      string
	LogLevel     string
}

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	loadDotEnv()

	fee, err := decimal.NewFromString(getEnv("DELIVERY_FEE", "15"))
	if err != nil || !fee.IsPositive() {
		return nil, fmt.Errorf("DELIVERY_FEE must be a positive number, got %q", os.Getenv("DELIVERY_FEE"))
	}

	hash, err := adminKeyHash(os.Getenv("ADMIN_KEY_HASH"), os.Getenv("ADMIN_KEY"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", "0.0.0.0:8080"),
		DB:           dbFromEnv(),
		RedisAddress: getEnv("REDIS_ADDRESS", ""),
		CacheTTL:     time.Duration(intFromEnv("CACHE_TTL_SECONDS", 60)) * time.Second,
		DeliveryFee:  fee,
		AdminKeyHash: hash,
		JWTSecret:    getEnv("JWT_SECRET", "supersecret"),
		TokenTTL:     time.Duration(intFromEnv("TOKEN_TTL_HOURS", 72)) * time.Hour,
		PhoneRegion:  strings.ToUpper(getEnv("PHONE_REGION", "IQ")),
		LogFile:      getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:     getEnv("LOG_LEVEL", "debug"),
	}, nil
}

// LoadDB reads only the database settings, for tools that need nothing else.
func LoadDB() DBConfig {
	loadDotEnv()
	return dbFromEnv()
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, relying on env vars")
	}
}

func dbFromEnv() DBConfig {
	return DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "password"),
		Name:     getEnv("DB_NAME", "courier_ledger"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		TimeZone: getEnv("DB_TIMEZONE", "UTC"),
	}
}

// adminKeyHash prefers a precomputed bcrypt hash; a plain key is hashed once at startup.
func adminKeyHash(hash, plain string) ([]byte, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("ADMIN_KEY_HASH is not a bcrypt hash: %w", err)
		}
		return []byte(hash), nil
	}
	if plain == "" {
		return nil, ErrNoAdminKey
	}
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
