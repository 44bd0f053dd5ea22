package ai

import (
	"time"

	"github.com/pkg/errors"

	"github.com/nexuslabs/nexus/internal/profile"
)

// Config represents AI service configuration.
type Config struct {
	Embedding EmbeddingConfig
	Research  ResearchConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	// Provider is "openai" for any OpenAI-compatible endpoint, or "engine"
	// to use the research engine's own vector endpoint.
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	// EngineURL is used by the "engine" provider.
	EngineURL string
	Timeout   time.Duration
}

// ResearchConfig represents research engine configuration.
type ResearchConfig struct {
	EngineURL string
	Timeout   time.Duration
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   p.EmbeddingProvider,
			Model:      p.EmbeddingModel,
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Dimensions: p.EmbeddingDimensions,
			EngineURL:  p.EngineURL,
			Timeout:    p.EngineTimeout,
		},
		Research: ResearchConfig{
			EngineURL: p.EngineURL,
			Timeout:   p.EngineTimeout,
		},
	}
}

// Validate checks the embedding configuration for the selected provider.
func (c *EmbeddingConfig) Validate() error {
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return errors.New("embedding api key required for openai provider")
		}
		if c.Model == "" {
			return errors.New("embedding model required for openai provider")
		}
	case "engine":
		if c.EngineURL == "" {
			return errors.New("engine url required for engine embedding provider")
		}
	default:
		return errors.Errorf("unknown embedding provider: %q", c.Provider)
	}
	if c.Dimensions <= 0 {
		return errors.Errorf("invalid embedding dimensions: %d", c.Dimensions)
	}
	return nil
}
