package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Mode can be "prod", "dev" or "demo".
	Mode string
	// Addr is the binding address for the server.
	Addr string
	// Port is the binding port for the server.
	Port int
	// Data is the data directory (sqlite database location).
	Data string
	// Driver is the database driver: "postgres" or "sqlite".
	Driver string
	// DSN is the database connection string.
	DSN string
	// Version is the current service version.
	Version string

	// EngineURL is the base URL of the research engine. When empty, mission
	// creation still succeeds but enrichment never runs.
	EngineURL string
	// EngineTimeout bounds a single request to the research engine.
	EngineTimeout time.Duration

	// Embedding configuration. Provider is "openai" for any OpenAI-compatible
	// endpoint, or "engine" to use the research engine's own vector endpoint.
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Secret signs the session tokens checked at the API boundary.
	Secret string

	// Enrichment pipeline tunables. The defaults mirror the observed behavior
	// of the production service; they are knobs, not derived values.
	MaxRetries      int
	RetryBackoff    time.Duration
	EnricherWorkers int
	// EngineConcurrency caps in-flight research engine calls across all
	// workers, independently of the worker count.
	EngineConcurrency int
	EmbedPrefixLen    int

	// RelevanceThreshold is the cosine-distance cutoff for hybrid search.
	RelevanceThreshold float64
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEnrichmentEnabled returns true when a research engine endpoint is configured.
func (p *Profile) IsEnrichmentEnabled() bool {
	return p.EngineURL != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.EngineURL = getEnvOrDefault("NEXUS_ENGINE_URL", "")
	p.EngineTimeout = time.Duration(getEnvOrDefaultInt("NEXUS_ENGINE_TIMEOUT_SECONDS", 120)) * time.Second

	p.EmbeddingProvider = getEnvOrDefault("NEXUS_EMBEDDING_PROVIDER", "engine")
	p.EmbeddingModel = getEnvOrDefault("NEXUS_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("NEXUS_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("NEXUS_EMBEDDING_BASE_URL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("NEXUS_EMBEDDING_DIMENSIONS", 384)

	p.Secret = getEnvOrDefault("NEXUS_SECRET", "")

	p.MaxRetries = getEnvOrDefaultInt("NEXUS_MAX_RETRIES", 3)
	p.RetryBackoff = time.Duration(getEnvOrDefaultInt("NEXUS_RETRY_BACKOFF_SECONDS", 2)) * time.Second
	p.EnricherWorkers = getEnvOrDefaultInt("NEXUS_ENRICHER_WORKERS", 3)
	p.EngineConcurrency = getEnvOrDefaultInt("NEXUS_ENGINE_CONCURRENCY", 2)
	p.EmbedPrefixLen = getEnvOrDefaultInt("NEXUS_EMBED_PREFIX_LEN", 500)

	p.RelevanceThreshold = getEnvOrDefaultFloat("NEXUS_RELEVANCE_THRESHOLD", 0.5)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver: %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	if p.Driver == "sqlite" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("nexus_%s.db", p.Mode))
		}
	}

	if p.MaxRetries < 1 {
		return errors.Errorf("max retries must be at least 1, got %d", p.MaxRetries)
	}
	if p.RetryBackoff < 0 {
		return errors.Errorf("retry backoff cannot be negative: %s", p.RetryBackoff)
	}
	if p.RelevanceThreshold <= 0 || p.RelevanceThreshold > 2 {
		return errors.Errorf("relevance threshold out of range (0, 2]: %f", p.RelevanceThreshold)
	}
	if p.EnricherWorkers < 1 {
		p.EnricherWorkers = 3
	}
	if p.EngineConcurrency < 1 {
		p.EngineConcurrency = 2
	}
	if p.EmbedPrefixLen < 1 {
		p.EmbedPrefixLen = 500
	}

	return nil
}
