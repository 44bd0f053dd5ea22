package store

import (
	"context"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// MissionStatus is the lifecycle status of a mission.
type MissionStatus string

const (
	// MissionInitializing is the only non-terminal status: the draft row
	// exists but the background enrichment has not finished yet.
	MissionInitializing MissionStatus = "Initializing"
	// MissionCompleted means the research engine produced a full report.
	MissionCompleted MissionStatus = "Completed"
	// MissionDemoMode means the engine returned a degraded sample response.
	// The report is usable but clearly labeled; this is not a failure.
	MissionDemoMode MissionStatus = "DemoMode"
	// MissionFailed means every enrichment attempt was exhausted. The report
	// holds a user-facing explanation instead of generated content.
	MissionFailed MissionStatus = "Failed"
)

// Validate checks that the status is a known value.
func (s MissionStatus) Validate() error {
	switch s {
	case MissionInitializing, MissionCompleted, MissionDemoMode, MissionFailed:
		return nil
	}
	return errors.Errorf("invalid mission status: %q", s)
}

// IsTerminal returns true for statuses that never transition again.
func (s MissionStatus) IsTerminal() bool {
	return s == MissionCompleted || s == MissionDemoMode || s == MissionFailed
}

// Mission is a research prompt plus its eventual report and embedding.
type Mission struct {
	ID        int32
	UID       string
	CreatorID int32
	Title     string
	Status    MissionStatus
	// Report is nil while Initializing. It holds generated content on
	// Completed/DemoMode and a failure explanation on Failed.
	Report *string
	// Embedding is set only when enrichment succeeded.
	Embedding []float32
	CreatedTs int64
	UpdatedTs int64
}

// FindMission is the find condition for missions.
type FindMission struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	Status    *MissionStatus
	// TitleContains filters by case-insensitive substring match on the title.
	TitleContains *string
	// OrderByCreatedTsAsc flips the default createdTs DESC ordering.
	OrderByCreatedTsAsc bool
	Limit               *int
	Offset              *int
}

// UpdateMissionTitle renames a mission. Scoped to the creator.
type UpdateMissionTitle struct {
	ID        int32
	CreatorID int32
	Title     string
}

// FinishMission is the single terminal write of the enrichment pipeline:
// status, report and embedding land in one atomic update.
type FinishMission struct {
	ID        int32
	Status    MissionStatus
	Report    string
	Embedding []float32
}

// Validate rejects terminal writes that would violate the status invariants
// before any SQL runs.
func (f *FinishMission) Validate() error {
	if err := f.Status.Validate(); err != nil {
		return err
	}
	if !f.Status.IsTerminal() {
		return errors.Errorf("finish requires a terminal status, got %q", f.Status)
	}
	if f.Report == "" {
		return errors.New("terminal status requires a report")
	}
	if f.Status == MissionFailed && len(f.Embedding) > 0 {
		return errors.New("failed mission must not carry an embedding")
	}
	return nil
}

// DeleteMission deletes a mission and its notes. Scoped to the creator.
type DeleteMission struct {
	ID        int32
	CreatorID int32
}

// MissionWithDistance is a hybrid search result with its vector distance to
// the query. Rows matched only by title substring may carry a nil distance.
type MissionWithDistance struct {
	Mission  *Mission
	Distance *float64
}

// MissionSearchOptions are the options for hybrid mission search.
type MissionSearchOptions struct {
	CreatorID int32
	// Search is the literal query text, matched case-insensitively against titles.
	Search string
	// Vector is the embedded query text.
	Vector []float32
	Status *MissionStatus
	// Threshold is the cosine-distance cutoff below which a row is considered
	// semantically relevant (0 = identical).
	Threshold float64
	Limit     int
	Offset    int
}

// Validate validates the MissionSearchOptions and fills defaults.
func (o *MissionSearchOptions) Validate() error {
	if o.CreatorID <= 0 {
		return errors.Errorf("invalid CreatorID: %d", o.CreatorID)
	}
	if strings.TrimSpace(o.Search) == "" {
		return errors.New("search text cannot be empty")
	}
	if len(o.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if o.Threshold <= 0 {
		o.Threshold = 0.5
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 5
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	if o.Offset < 0 {
		return errors.Errorf("offset cannot be negative: %d", o.Offset)
	}
	return nil
}

// CreateMission inserts a draft mission in Initializing state.
func (s *Store) CreateMission(ctx context.Context, creatorID int32, title string) (*Mission, error) {
	if creatorID <= 0 {
		return nil, errors.Errorf("invalid creator id: %d", creatorID)
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("title cannot be empty")
	}

	now := time.Now().Unix()
	mission := &Mission{
		UID:       shortuuid.New(),
		CreatorID: creatorID,
		Title:     title,
		Status:    MissionInitializing,
		CreatedTs: now,
		UpdatedTs: now,
	}
	return s.driver.CreateMission(ctx, mission)
}

// GetMission gets a single mission matching the find condition.
func (s *Store) GetMission(ctx context.Context, find *FindMission) (*Mission, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListMissions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListMissions lists missions matching the find condition.
func (s *Store) ListMissions(ctx context.Context, find *FindMission) ([]*Mission, error) {
	return s.driver.ListMissions(ctx, find)
}

// CountMissions counts missions matching the find condition, ignoring
// limit/offset.
func (s *Store) CountMissions(ctx context.Context, find *FindMission) (int, error) {
	return s.driver.CountMissions(ctx, find)
}

// UpdateMissionTitle renames a mission.
func (s *Store) UpdateMissionTitle(ctx context.Context, update *UpdateMissionTitle) (*Mission, error) {
	if strings.TrimSpace(update.Title) == "" {
		return nil, errors.New("title cannot be empty")
	}
	return s.driver.UpdateMissionTitle(ctx, update)
}

// FinishMission performs the atomic terminal write for a mission.
func (s *Store) FinishMission(ctx context.Context, finish *FinishMission) (*Mission, error) {
	if err := finish.Validate(); err != nil {
		return nil, err
	}
	return s.driver.FinishMission(ctx, finish)
}

// DeleteMission deletes a mission and cascades to its notes.
func (s *Store) DeleteMission(ctx context.Context, delete *DeleteMission) error {
	return s.driver.DeleteMission(ctx, delete)
}

// SearchMissions performs hybrid search: title substring match OR vector
// distance below the threshold, ranked by ascending distance.
func (s *Store) SearchMissions(ctx context.Context, opts *MissionSearchOptions) ([]*MissionWithDistance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.SearchMissions(ctx, opts)
}
