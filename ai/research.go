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
)

// Report is the research engine's answer to a prompt.
type Report struct {
	Content string
	// DemoMode is set when the engine returned a degraded sample response
	// instead of a full report.
	DemoMode bool
}

// ResearchService is the research engine client interface.
type ResearchService interface {
	// Research submits a prompt and returns the generated report.
	Research(ctx context.Context, prompt string) (*Report, error)
}

// TransientError marks a research failure worth retrying: rate limiting,
// server-side errors and transport failures.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// NewResearchService creates an HTTP client for the research engine.
func NewResearchService(cfg *ResearchConfig) (ResearchService, error) {
	if cfg.EngineURL == "" {
		return nil, errors.New("engine url required")
	}
	return &researchService{
		baseURL: strings.TrimRight(cfg.EngineURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type researchService struct {
	baseURL string
	client  *http.Client
}

type researchRequest struct {
	Prompt string `json:"prompt"`
}

type researchResponse struct {
	Report string `json:"report"`
	Status string `json:"status,omitempty"`
}

func (s *researchService) Research(ctx context.Context, prompt string) (*Report, error) {
	body, err := json.Marshal(researchRequest{Prompt: prompt})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode research request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/start-research", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build research request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Network failures are retryable.
		return nil, &TransientError{Err: errors.Wrap(err, "research request failed")}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		httpErr := fmt.Errorf("research engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, &TransientError{Err: httpErr}
		}
		return nil, httpErr
	}

	var decoded researchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "failed to decode research response")
	}
	if decoded.Report == "" {
		return nil, errors.New("empty report in research response")
	}

	return &Report{
		Content:  decoded.Report,
		DemoMode: decoded.Status == "demo_mode",
	}, nil
}
