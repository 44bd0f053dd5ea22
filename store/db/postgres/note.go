package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/nexuslabs/nexus/store"
)

// CreateNote inserts a note row.
func (d *DB) CreateNote(ctx context.Context, create *store.Note) (*store.Note, error) {
	stmt := `
		INSERT INTO note (uid, mission_id, content, created_ts, updated_ts)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.MissionID,
		create.Content,
		create.CreatedTs,
		create.UpdatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create note")
	}
	return create, nil
}

// ListNotes lists notes matching the find condition.
func (d *DB) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.MissionID != nil {
		where, args = append(where, "mission_id = "+placeholder(len(args)+1)), append(args, *find.MissionID)
	}

	order := "created_ts DESC"
	if find.OrderByCreatedTsAsc {
		order = "created_ts ASC"
	}

	query := `
		SELECT id, uid, mission_id, content, created_ts, updated_ts
		FROM note
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	list := []*store.Note{}
	for rows.Next() {
		var note store.Note
		err := rows.Scan(
			&note.ID,
			&note.UID,
			&note.MissionID,
			&note.Content,
			&note.CreatedTs,
			&note.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan note")
		}
		list = append(list, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateNote updates a note's content.
func (d *DB) UpdateNote(ctx context.Context, update *store.UpdateNote) (*store.Note, error) {
	stmt := `
		UPDATE note
		SET content = ` + placeholder(1) + `, updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = ` + placeholder(2) + `
		RETURNING id, uid, mission_id, content, created_ts, updated_ts
	`
	var note store.Note
	err := d.db.QueryRowContext(ctx, stmt, update.Content, update.ID).Scan(
		&note.ID,
		&note.UID,
		&note.MissionID,
		&note.Content,
		&note.CreatedTs,
		&note.UpdatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update note")
	}
	return &note, nil
}

// DeleteNote deletes a note.
func (d *DB) DeleteNote(ctx context.Context, delete *store.DeleteNote) error {
	stmt := `DELETE FROM note WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete note")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("note %d not found", delete.ID)
	}
	return nil
}
