// Package apiv1 exposes the REST surface of the service.
package apiv1

import (
	"github.com/labstack/echo/v4"

	"github.com/nexuslabs/nexus/internal/profile"
	"github.com/nexuslabs/nexus/plugin/markdown"
	"github.com/nexuslabs/nexus/server/auth"
	"github.com/nexuslabs/nexus/server/enricher"
	"github.com/nexuslabs/nexus/server/retriever"
	"github.com/nexuslabs/nexus/store"
)

// APIV1Service wires the domain services into the echo router.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Enricher  *enricher.Enricher
	Retriever *retriever.Retriever
	Markdown  markdown.Service
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, st *store.Store, en *enricher.Enricher, rt *retriever.Retriever) *APIV1Service {
	return &APIV1Service{
		Profile:   p,
		Store:     st,
		Enricher:  en,
		Retriever: rt,
		Markdown:  markdown.NewService(),
	}
}

// Register mounts all authenticated API routes.
func (s *APIV1Service) Register(e *echo.Echo) {
	api := e.Group("/api", auth.Middleware(s.Profile.Secret))

	api.POST("/missions", s.createMission)
	api.GET("/missions", s.listMissions)
	api.GET("/missions/:uid", s.getMission)
	api.PUT("/missions/:uid", s.updateMission)
	api.DELETE("/missions/:uid", s.deleteMission)

	api.POST("/notes", s.createNote)
	api.PUT("/notes/:uid", s.updateNote)
	api.DELETE("/notes/:uid", s.deleteNote)
}
