package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string

	// Detector
	DetectorBackends []string
	DetectorURL      string
	DetectorTimeout  time.Duration
	DetectorLanguage string
	ProseConfidence  float64

	// Redaction
	OverlapPolicy string
	PolicyFile    string
	DefaultPreset string

	// Artifact archive
	ArtifactStoreEnabled bool
	S3Endpoint           string
	S3AccessKeyID        string
	S3SecretAccessKey    string
	S3BucketName         string
	S3UseSSL             bool

	// Upload limits
	MaxFileSize int64
}

// Load reads .env (if present) then environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("DETECTOR_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DETECTOR_TIMEOUT: %w", err)
	}

	proseConfidence, err := strconv.ParseFloat(getEnv("PROSE_CONFIDENCE", "0.85"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PROSE_CONFIDENCE: %w", err)
	}

	maxFileSize, err := parseSize(getEnv("MAX_FILE_SIZE", "10MiB"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE: %w", err)
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          getEnv("DATABASE_URL", "data/policies.db"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DetectorBackends:     splitList(getEnv("DETECTOR_BACKENDS", "presidio")),
		DetectorURL:          strings.TrimRight(getEnv("DETECTOR_URL", "http://localhost:5002"), "/"),
		DetectorTimeout:      timeout,
		DetectorLanguage:     getEnv("DETECTOR_LANGUAGE", "en"),
		ProseConfidence:      proseConfidence,
		OverlapPolicy:        getEnv("OVERLAP_POLICY", "reject"),
		PolicyFile:           getEnv("POLICY_FILE", ""),
		DefaultPreset:        getEnv("DEFAULT_PRESET", "default"),
		ArtifactStoreEnabled: getBool("ARTIFACT_STORE_ENABLED"),
		S3Endpoint:           getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:        getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey:    getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:         getEnv("S3_BUCKET_NAME", "redactions"),
		S3UseSSL:             getBool("S3_USE_SSL"),
		MaxFileSize:          maxFileSize,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be repaired with a default.
func (c *Config) Validate() error {
	if len(c.DetectorBackends) == 0 {
		return fmt.Errorf("DETECTOR_BACKENDS must name at least one backend")
	}
	for _, b := range c.DetectorBackends {
		switch b {
		case "presidio":
			if c.DetectorURL == "" {
				return fmt.Errorf("DETECTOR_URL is required for the presidio backend")
			}
		case "pattern", "prose":
		default:
			return fmt.Errorf("unknown detector backend %q", b)
		}
	}

	switch c.OverlapPolicy {
	case "reject", "keep_first":
	default:
		return fmt.Errorf("OVERLAP_POLICY must be reject or keep_first, got %q", c.OverlapPolicy)
	}

	if c.ProseConfidence < 0 || c.ProseConfidence > 1 {
		return fmt.Errorf("PROSE_CONFIDENCE must be between 0 and 1")
	}
	if c.DetectorTimeout <= 0 {
		return fmt.Errorf("DETECTOR_TIMEOUT must be positive")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.ArtifactStoreEnabled && c.S3BucketName == "" {
		return fmt.Errorf("S3_BUCKET_NAME is required when the artifact store is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string) bool {
	v := getEnv(key, "false")
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseSize accepts a byte count with an optional unit. MB is decimal,
// MiB is binary.
func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return int64(n), nil
}
