package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type Config struct {
	ServiceName string
	ListenAddr  string
	LogLevel    string

	DatabaseURL string

	JWTKey      []byte
	JWTIssuer   string
	JWTAudience string

	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	ResetTTL       time.Duration
	RotationBuffer time.Duration

	SweepInterval time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	ResetURL     string

	KafkaBrokers []string

	ForgotWindow time.Duration
	ForgotLimit  int
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "auth"),
		ListenAddr:  EnvDefault("LISTEN_ADDR", ":8080"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTKey:      []byte(os.Getenv("JWT_SECRET")),
		JWTIssuer:   EnvDefault("JWT_ISSUER", "auth_service"),
		JWTAudience: EnvDefault("JWT_AUDIENCE", "auth_service"),

		AccessTTL:      time.Duration(EnvIntDefault("ACCESS_TTL_HOURS", 1)) * time.Hour,
		RefreshTTL:     time.Duration(EnvIntDefault("REFRESH_TTL_DAYS", 7)) * 24 * time.Hour,
		ResetTTL:       time.Duration(EnvIntDefault("RESET_TTL_MINUTES", 10)) * time.Minute,
		RotationBuffer: time.Duration(EnvIntDefault("ROTATION_BUFFER_MINUTES", 10)) * time.Minute,

		SweepInterval: time.Duration(EnvIntDefault("SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     EnvIntDefault("SMTP_PORT", 465),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		ResetURL:     EnvDefault("RESET_URL", "http://localhost:8080/reset-password"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ForgotWindow: time.Duration(EnvIntDefault("FORGOT_WINDOW_MINUTES", 15)) * time.Minute,
		ForgotLimit:  EnvIntDefault("FORGOT_LIMIT", 5),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
