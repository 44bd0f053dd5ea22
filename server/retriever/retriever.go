// Package retriever answers mission list queries, choosing between plain
// filtered listing and similarity-ranked hybrid search.
package retriever

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nexuslabs/nexus/ai"
	"github.com/nexuslabs/nexus/internal/metrics"
	"github.com/nexuslabs/nexus/store"
)

// ErrNotFound is returned when a mission does not exist under the requesting
// identity.
var ErrNotFound = errors.New("mission not found")

// placeholderTotal keeps "next page" navigable under ranked search, where an
// exact count would need a second full ranking pass. Callers must not treat
// the hybrid total as authoritative.
const placeholderTotal = 100

const (
	defaultLimit = 5

	strategyPlain    = "plain"
	strategyHybrid   = "hybrid"
	strategyFallback = "fallback"
)

// MissionStore is the slice of the store the retriever reads from.
type MissionStore interface {
	GetMission(ctx context.Context, find *store.FindMission) (*store.Mission, error)
	ListMissions(ctx context.Context, find *store.FindMission) ([]*store.Mission, error)
	CountMissions(ctx context.Context, find *store.FindMission) (int, error)
	SearchMissions(ctx context.Context, opts *store.MissionSearchOptions) ([]*store.MissionWithDistance, error)
	ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error)
}

// Retriever serves paginated, sorted, optionally keyword- or semantically-
// ranked mission queries. It is stateless across requests.
type Retriever struct {
	store    MissionStore
	embedder ai.EmbeddingService
	// threshold is the cosine-distance cutoff for semantic relevance.
	threshold float64
	exporter  *metrics.Exporter
}

// New creates a Retriever. embedder may be nil; hybrid search then always
// degrades to the substring fallback.
func New(st MissionStore, embedder ai.EmbeddingService, threshold float64, exporter *metrics.Exporter) *Retriever {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Retriever{
		store:     st,
		embedder:  embedder,
		threshold: threshold,
		exporter:  exporter,
	}
}

// ListOptions are the caller-facing list parameters, before normalization.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	// Sort is "asc" or "desc" by creation time; anything else means desc.
	Sort string
	// Status is "All" (or empty) or one of the mission statuses.
	Status string
}

// Pagination describes the result window. Total is exact for plain listing
// and the fallback, approximate under hybrid ranking.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// ListResult is one page of missions plus pagination metadata.
type ListResult struct {
	Missions   []*store.Mission
	Pagination Pagination
}

// MissionDetail is a mission with its notes, newest first.
type MissionDetail struct {
	Mission *store.Mission
	Notes   []*store.Note
}

// List returns one page of the creator's missions. Empty search text selects
// the exact plain listing; anything else selects hybrid search with a
// substring fallback when the embedder is unavailable.
func (r *Retriever) List(ctx context.Context, creatorID int32, opts ListOptions) (*ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := (page - 1) * limit

	var statusFilter *store.MissionStatus
	if opts.Status != "" && opts.Status != "All" {
		status := store.MissionStatus(opts.Status)
		if err := status.Validate(); err != nil {
			return nil, err
		}
		statusFilter = &status
	}

	search := strings.TrimSpace(opts.Search)
	if search == "" {
		return r.listPlain(ctx, creatorID, statusFilter, opts.Sort, page, limit, offset)
	}
	return r.listHybrid(ctx, creatorID, statusFilter, search, page, limit, offset)
}

// listPlain is strategy A: deterministic and exact.
func (r *Retriever) listPlain(ctx context.Context, creatorID int32, status *store.MissionStatus, sort string, page, limit, offset int) (*ListResult, error) {
	start := time.Now()

	find := &store.FindMission{
		CreatorID:           &creatorID,
		Status:              status,
		OrderByCreatedTsAsc: sort == "asc",
		Limit:               &limit,
		Offset:              &offset,
	}
	missions, err := r.store.ListMissions(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list missions")
	}

	total, err := r.store.CountMissions(ctx, &store.FindMission{CreatorID: &creatorID, Status: status})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count missions")
	}

	r.observe(strategyPlain, start)
	return &ListResult{
		Missions:   missions,
		Pagination: paginate(total, page, limit),
	}, nil
}

// listHybrid is strategy B: vectorize the query and rank by distance, letting
// title substring matches in for recall. When vectorization is impossible it
// degrades to the exact substring-only fallback.
func (r *Retriever) listHybrid(ctx context.Context, creatorID int32, status *store.MissionStatus, search string, page, limit, offset int) (*ListResult, error) {
	start := time.Now()

	if r.embedder == nil {
		return r.listFallback(ctx, creatorID, status, search, page, limit, offset, start)
	}
	vector, err := r.embedder.Embed(ctx, search)
	if err != nil {
		slog.Warn("query vectorization failed, falling back to keyword search", "error", err)
		return r.listFallback(ctx, creatorID, status, search, page, limit, offset, start)
	}

	results, err := r.store.SearchMissions(ctx, &store.MissionSearchOptions{
		CreatorID: creatorID,
		Search:    search,
		Vector:    vector,
		Status:    status,
		Threshold: r.threshold,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search missions")
	}

	missions := make([]*store.Mission, 0, len(results))
	for _, result := range results {
		missions = append(missions, result.Mission)
	}

	// An exact count over the similarity predicate would cost a second full
	// scan; a short page is exact, a full page gets a placeholder total.
	total := len(missions)
	if total >= limit {
		total = placeholderTotal
	}

	r.observe(strategyHybrid, start)
	return &ListResult{
		Missions:   missions,
		Pagination: paginate(total, page, limit),
	}, nil
}

// listFallback is the substring-only safety net: exact, ordered by creation
// time descending.
func (r *Retriever) listFallback(ctx context.Context, creatorID int32, status *store.MissionStatus, search string, page, limit, offset int, start time.Time) (*ListResult, error) {
	find := &store.FindMission{
		CreatorID:     &creatorID,
		Status:        status,
		TitleContains: &search,
		Limit:         &limit,
		Offset:        &offset,
	}
	missions, err := r.store.ListMissions(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list missions")
	}

	r.observe(strategyFallback, start)
	return &ListResult{
		Missions:   missions,
		Pagination: paginate(len(missions), page, limit),
	}, nil
}

// GetOne returns a mission with its notes ordered newest first.
func (r *Retriever) GetOne(ctx context.Context, creatorID int32, uid string) (*MissionDetail, error) {
	mission, err := r.store.GetMission(ctx, &store.FindMission{UID: &uid, CreatorID: &creatorID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get mission")
	}
	if mission == nil {
		return nil, ErrNotFound
	}

	notes, err := r.store.ListNotes(ctx, &store.FindNote{MissionID: &mission.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notes")
	}

	return &MissionDetail{Mission: mission, Notes: notes}, nil
}

func (r *Retriever) observe(strategy string, start time.Time) {
	if r.exporter != nil {
		r.exporter.ObserveSearch(strategy, time.Since(start))
	}
}

func paginate(total, page, limit int) Pagination {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return Pagination{Total: total, Page: page, Pages: pages}
}
