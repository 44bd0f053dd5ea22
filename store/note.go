package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Note is a short annotation attached to a mission. Plain CRUD, no effect on
// the enrichment pipeline.
type Note struct {
	ID        int32
	UID       string
	MissionID int32
	Content   string
	CreatedTs int64
	UpdatedTs int64
}

// FindNote is the find condition for notes.
type FindNote struct {
	ID        *int32
	UID       *string
	MissionID *int32
	// OrderByCreatedTsAsc flips the default createdTs DESC ordering.
	OrderByCreatedTsAsc bool
}

// UpdateNote updates the content of a note.
type UpdateNote struct {
	ID      int32
	Content string
}

// DeleteNote deletes a note by id.
type DeleteNote struct {
	ID int32
}

// CreateNote inserts a note for a mission.
func (s *Store) CreateNote(ctx context.Context, missionID int32, content string) (*Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("content cannot be empty")
	}
	now := time.Now().Unix()
	note := &Note{
		UID:       uuid.NewString(),
		MissionID: missionID,
		Content:   content,
		CreatedTs: now,
		UpdatedTs: now,
	}
	return s.driver.CreateNote(ctx, note)
}

// GetNote gets a single note matching the find condition.
func (s *Store) GetNote(ctx context.Context, find *FindNote) (*Note, error) {
	list, err := s.driver.ListNotes(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListNotes lists notes matching the find condition.
func (s *Store) ListNotes(ctx context.Context, find *FindNote) ([]*Note, error) {
	return s.driver.ListNotes(ctx, find)
}

// UpdateNote updates a note's content.
func (s *Store) UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error) {
	if strings.TrimSpace(update.Content) == "" {
		return nil, errors.New("content cannot be empty")
	}
	return s.driver.UpdateNote(ctx, update)
}

// DeleteNote deletes a note.
func (s *Store) DeleteNote(ctx context.Context, delete *DeleteNote) error {
	return s.driver.DeleteNote(ctx, delete)
}
