package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config collects the environment-derived settings for a generation run.
// Flags layered on top by the CLI take precedence over these values.
type Config struct {
	GeminiAPIKey string
	Model        string

	MaxConcurrent     int
	RequestsPerWindow int
	Window            time.Duration

	OutDir string
	PGDSN  string
	S3     S3Config
}

// S3Config mirrors the object-store settings (all optional; the store is
// enabled only when an endpoint is configured).
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env (when present) and the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:             firstNonEmpty(os.Getenv("GENFORGE_MODEL"), "gemini-2.5-flash"),
		MaxConcurrent:     envInt("GENFORGE_MAX_CONCURRENT", 3),
		RequestsPerWindow: envInt("GENFORGE_REQUESTS_PER_MINUTE", 15),
		Window:            time.Minute,
		OutDir:            firstNonEmpty(os.Getenv("GENFORGE_OUT_DIR"), "out"),
		PGDSN:             strings.TrimSpace(os.Getenv("GENFORGE_PG_DSN")),
		S3: S3Config{
			Endpoint:  strings.TrimSpace(os.Getenv("GENFORGE_S3_ENDPOINT")),
			Region:    firstNonEmpty(os.Getenv("GENFORGE_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(os.Getenv("GENFORGE_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(os.Getenv("GENFORGE_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(os.Getenv("GENFORGE_S3_BUCKET"), "genforge-artifacts"),
			UseSSL:    envBool("GENFORGE_S3_USE_SSL", false),
		},
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
