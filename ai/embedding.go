package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// NewEmbeddingService creates an EmbeddingService for the configured provider.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "openai":
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		return &openaiEmbeddingService{
			client:     openai.NewClientWithConfig(clientConfig),
			model:      cfg.Model,
			dimensions: cfg.Dimensions,
		}, nil
	case "engine":
		return &engineEmbeddingService{
			baseURL:    strings.TrimRight(cfg.EngineURL, "/"),
			client:     &http.Client{Timeout: cfg.Timeout},
			dimensions: cfg.Dimensions,
		}, nil
	}
	return nil, errors.Errorf("unknown embedding provider: %q", cfg.Provider)
}

// openaiEmbeddingService speaks the OpenAI-compatible embeddings protocol.
type openaiEmbeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
}

func (s *openaiEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	}
	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func (s *openaiEmbeddingService) Dimensions() int {
	return s.dimensions
}

// engineEmbeddingService uses the research engine's vector endpoint.
type engineEmbeddingService struct {
	baseURL    string
	client     *http.Client
	dimensions int
}

type engineVectorRequest struct {
	Text string `json:"text"`
}

type engineVectorResponse struct {
	Vector []float32 `json:"vector"`
}

func (s *engineEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(engineVectorRequest{Text: text})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode vector request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/create-vector", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build vector request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "vector request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("vector endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded engineVectorResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "failed to decode vector response")
	}
	if len(decoded.Vector) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return decoded.Vector, nil
}

func (s *engineEmbeddingService) Dimensions() int {
	return s.dimensions
}
