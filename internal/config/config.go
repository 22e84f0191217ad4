// Package config loads the server configuration from the environment and an
// optional .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"quizify/internal/chunker"
	"quizify/internal/gemini"

	"github.com/joho/godotenv"
)

// Session backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// R2 holds the Cloudflare R2 archive settings. Archiving is off unless all
// fields are set.
type R2 struct {
	AccountID       string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// Enabled reports whether every R2 setting is present.
func (r R2) Enabled() bool {
	return r.AccountID != "" && r.Bucket != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.PublicURL != ""
}

// Config is the complete server configuration.
type Config struct {
	Port string

	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string

	SessionSecret  []byte
	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	DatabaseURL    string

	VectorDBPath   string
	ChunkSeparator string
	ChunkSize      int
	ChunkOverlap   int
	RetrievalK     int
	MaxQuestions   int
	MaxUploadMB    int64
	TranscriptLang string

	FrontendURL       string
	DiscordWebhookURL string
	R2                R2
}

// Load reads .env (a missing file is fine) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		log.Println("WARN: .env file not found. Relying on system environment variables.")
	} else {
		log.Println("INFO: .env file loaded successfully.")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults and validating
// every value.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	var errs []error
	atoi := func(key string, def int) int {
		raw := env(key, "")
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, raw))
			return def
		}
		return n
	}

	cfg := &Config{
		Port:              env("PORT", "8080"),
		GeminiAPIKey:      env("GEMINI_API_KEY", ""),
		GeminiModel:       env("GEMINI_MODEL", gemini.DefaultModel),
		EmbeddingModel:    env("EMBEDDING_MODEL", gemini.DefaultEmbeddingModel),
		SessionBackend:    strings.ToLower(env("SESSION_BACKEND", BackendMemory)),
		RedisAddr:         env("REDIS_ADDR", "localhost:6379"),
		DatabaseURL:       env("DATABASE_URL", ""),
		VectorDBPath:      env("VECTOR_DB_PATH", ":memory:"),
		ChunkSeparator:    unescape(env("CHUNK_SEPARATOR", chunker.DefaultSeparator)),
		ChunkSize:         atoi("CHUNK_SIZE", chunker.DefaultSize),
		ChunkOverlap:      atoi("CHUNK_OVERLAP", chunker.DefaultOverlap),
		RetrievalK:        atoi("RETRIEVAL_K", 8),
		MaxQuestions:      atoi("MAX_QUESTIONS", 10),
		MaxUploadMB:       int64(atoi("MAX_UPLOAD_MB", 32)),
		TranscriptLang:    env("YOUTUBE_LANG", ""),
		FrontendURL:       strings.TrimSuffix(env("FRONTEND_URL", ""), "/"),
		DiscordWebhookURL: env("DISCORD_WEBHOOK_URL", ""),
		R2: R2{
			AccountID:       env("CLOUDFLARE_ACCOUNT_ID", ""),
			Bucket:          env("R2_BUCKET_NAME", ""),
			AccessKeyID:     env("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: env("R2_SECRET_ACCESS_KEY", ""),
			PublicURL:       env("R2_PUBLIC_URL", ""),
		},
	}

	ttl, err := time.ParseDuration(env("SESSION_TTL", "24h"))
	if err != nil || ttl <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL: %q is not a positive duration", env("SESSION_TTL", "")))
	}
	cfg.SessionTTL = ttl

	if cfg.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY must be set"))
	}
	switch cfg.SessionBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set when SESSION_BACKEND is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND: unknown backend %q (want memory, redis or postgres)", cfg.SessionBackend))
	}
	if _, err := chunker.New(cfg.ChunkSeparator, cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		errs = append(errs, err)
	}
	if cfg.RetrievalK < 1 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_K must be positive, got %d", cfg.RetrievalK))
	}
	if cfg.MaxQuestions < 1 {
		errs = append(errs, fmt.Errorf("MAX_QUESTIONS must be positive, got %d", cfg.MaxQuestions))
	}
	if cfg.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if secret := getenv("SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = []byte(secret)
	} else {
		log.Println("WARNING: SESSION_SECRET environment variable is not set; using a random key, sessions will not survive a restart.")
		cfg.SessionSecret = randomKey()
	}
	return cfg, nil
}

func unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r").Replace(s)
}

func randomKey() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("FATAL: Failed to generate session key: %v", err)
	}
	return []byte(hex.EncodeToString(b))
}
