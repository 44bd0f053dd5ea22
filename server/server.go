// Package server assembles the HTTP server, the background enricher and the
// retrieval engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/nexuslabs/nexus/ai"
	"github.com/nexuslabs/nexus/internal/metrics"
	"github.com/nexuslabs/nexus/internal/profile"
	"github.com/nexuslabs/nexus/server/enricher"
	"github.com/nexuslabs/nexus/server/retriever"
	"github.com/nexuslabs/nexus/server/router/apiv1"
	"github.com/nexuslabs/nexus/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	enricher   *enricher.Enricher
}

// NewServer wires the AI services, the enricher, the retriever and the REST
// routes. A missing research engine configuration disables enrichment but
// never blocks startup.
func NewServer(_ context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
		AllowOriginFunc:  func(string) (bool, error) { return true, nil },
	}))

	exporter := metrics.NewExporter()

	var research ai.ResearchService
	var embedder ai.EmbeddingService
	if p.IsEnrichmentEnabled() {
		cfg := ai.NewConfigFromProfile(p)
		var err error
		research, err = ai.NewResearchService(&cfg.Research)
		if err != nil {
			return nil, err
		}
		embedder, err = ai.NewEmbeddingService(&cfg.Embedding)
		if err != nil {
			return nil, err
		}
		slog.Info("research engine configured",
			"engine_url", p.EngineURL,
			"embedding_provider", p.EmbeddingProvider,
		)
	} else {
		slog.Warn("no research engine configured, missions will stay initializing and search is keyword-only")
	}

	en := enricher.New(st, research, embedder, exporter, p)
	rt := retriever.New(st, embedder, p.RelevanceThreshold, exporter)

	apiService := apiv1.NewAPIV1Service(p, st, en, rt)
	apiService.Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	return &Server{
		Profile:    p,
		Store:      st,
		echoServer: e,
		enricher:   en,
	}, nil
}

// Start runs the enricher workers and the HTTP listener until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.enricher.Start()

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.echoServer.Start(address)
	})
	group.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return group.Wait()
}

// Shutdown gracefully stops the HTTP server, the enricher and the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	s.enricher.Stop()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("server stopped")
}
