package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database drivers.
type Driver interface {
	GetDB() *sql.DB
	Migrate(ctx context.Context) error
	Close() error

	CreateMission(ctx context.Context, create *Mission) (*Mission, error)
	ListMissions(ctx context.Context, find *FindMission) ([]*Mission, error)
	CountMissions(ctx context.Context, find *FindMission) (int, error)
	UpdateMissionTitle(ctx context.Context, update *UpdateMissionTitle) (*Mission, error)
	FinishMission(ctx context.Context, finish *FinishMission) (*Mission, error)
	DeleteMission(ctx context.Context, delete *DeleteMission) error
	SearchMissions(ctx context.Context, opts *MissionSearchOptions) ([]*MissionWithDistance, error)

	CreateNote(ctx context.Context, create *Note) (*Note, error)
	ListNotes(ctx context.Context, find *FindNote) ([]*Note, error)
	UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error)
	DeleteNote(ctx context.Context, delete *DeleteNote) error
}
