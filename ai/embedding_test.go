package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuslabs/nexus/internal/profile"
)

func TestEngineEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-vector", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "quantum computing", req["text"])

		json.NewEncoder(w).Encode(map[string][]float32{"vector": {0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Provider:   "engine",
		EngineURL:  srv.URL,
		Dimensions: 3,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, svc.Dimensions())

	vector, err := svc.Embed(context.Background(), "quantum computing")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestEngineEmbeddingErrors(t *testing.T) {
	t.Run("upstream error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		svc, err := NewEmbeddingService(&EmbeddingConfig{Provider: "engine", EngineURL: srv.URL, Dimensions: 3})
		require.NoError(t, err)

		_, err = svc.Embed(context.Background(), "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("empty vector", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string][]float32{"vector": {}})
		}))
		defer srv.Close()

		svc, err := NewEmbeddingService(&EmbeddingConfig{Provider: "engine", EngineURL: srv.URL, Dimensions: 3})
		require.NoError(t, err)

		_, err = svc.Embed(context.Background(), "text")
		assert.Error(t, err)
	})
}

func TestEmbeddingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EmbeddingConfig
		wantErr bool
	}{
		{"openai valid", EmbeddingConfig{Provider: "openai", APIKey: "key", Model: "text-embedding-3-small", Dimensions: 384}, false},
		{"openai missing key", EmbeddingConfig{Provider: "openai", Model: "m", Dimensions: 384}, true},
		{"openai missing model", EmbeddingConfig{Provider: "openai", APIKey: "key", Dimensions: 384}, true},
		{"engine valid", EmbeddingConfig{Provider: "engine", EngineURL: "http://localhost:8000", Dimensions: 384}, false},
		{"engine missing url", EmbeddingConfig{Provider: "engine", Dimensions: 384}, true},
		{"unknown provider", EmbeddingConfig{Provider: "tensorflow", Dimensions: 384}, true},
		{"bad dimensions", EmbeddingConfig{Provider: "engine", EngineURL: "http://localhost:8000"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEmbeddingServiceUnknownProvider(t *testing.T) {
	_, err := NewEmbeddingService(&EmbeddingConfig{Provider: "word2vec", Dimensions: 3})
	assert.Error(t, err)
}

func TestNewConfigFromProfile(t *testing.T) {
	prof := &profile.Profile{
		EngineURL:           "http://engine:8000",
		EngineTimeout:       2 * time.Minute,
		EmbeddingProvider:   "engine",
		EmbeddingDimensions: 384,
	}

	cfg := NewConfigFromProfile(prof)
	assert.Equal(t, "engine", cfg.Embedding.Provider)
	assert.Equal(t, "http://engine:8000", cfg.Embedding.EngineURL)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, "http://engine:8000", cfg.Research.EngineURL)
	assert.Equal(t, 2*time.Minute, cfg.Research.Timeout)
	require.NoError(t, cfg.Embedding.Validate())
}
