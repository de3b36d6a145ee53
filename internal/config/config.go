package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string
	LogLevel    string
	LogConsole  bool

	// PublicBaseURL is the externally reachable URL used in
	// verification links.
	PublicBaseURL string

	// Proof object storage (any S3-compatible endpoint).
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	ProofRetention time.Duration
	SignedURLTTL   time.Duration

	ResendMaxAttempts int
	ResendWindow      time.Duration

	SMTPAddr     string
	SMTPFrom     string
	SMTPUser     string
	SMTPPassword string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "pgpay-backend"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LogLevel:      fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogConsole:    os.Getenv("LOG_CONSOLE") == "true",
		PublicBaseURL: strings.TrimRight(fallback(os.Getenv("PUBLIC_BASE_URL"), "http://localhost:8080"), "/"),
		S3Endpoint:    strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3Region:      fallback(os.Getenv("S3_REGION"), "us-east-1"),
		S3Bucket:      fallback(os.Getenv("S3_BUCKET"), "payment-proofs"),
		S3AccessKey:   strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3SecretKey:   strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		SMTPAddr:      strings.TrimSpace(os.Getenv("SMTP_ADDR")),
		SMTPFrom:      strings.TrimSpace(os.Getenv("SMTP_FROM")),
		SMTPUser:      strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
	}

	cfg.JWTTTL = durationFromMinutes("JWT_TTL_MINUTES", 60)
	cfg.ProofRetention = durationFromHours("PROOF_RETENTION_HOURS", 72)
	cfg.SignedURLTTL = durationFromMinutes("SIGNED_URL_TTL_MINUTES", 15)
	cfg.ResendWindow = durationFromHours("RESEND_WINDOW_HOURS", 24)
	cfg.ResendMaxAttempts = intFromEnv("RESEND_MAX_ATTEMPTS", 3)

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// S3Configured reports whether object storage credentials are present.
func (c Config) S3Configured() bool {
	return c.S3AccessKey != "" && c.S3SecretKey != ""
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func durationFromMinutes(key string, def int) time.Duration {
	return time.Duration(intFromEnv(key, def)) * time.Minute
}

func durationFromHours(key string, def int) time.Duration {
	return time.Duration(intFromEnv(key, def)) * time.Hour
}

func intFromEnv(key string, def int) int {
	raw := fallback(os.Getenv(key), strconv.Itoa(def))
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return def
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
