package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/nexuslabs/nexus/store"
)

// CreateMission inserts a draft mission row.
func (d *DB) CreateMission(ctx context.Context, create *store.Mission) (*store.Mission, error) {
	stmt := `
		INSERT INTO mission (uid, creator_id, title, status, created_ts, updated_ts)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.CreatorID,
		create.Title,
		create.Status,
		create.CreatedTs,
		create.UpdatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mission")
	}
	return create, nil
}

// ListMissions lists missions matching the find condition.
func (d *DB) ListMissions(ctx context.Context, find *store.FindMission) ([]*store.Mission, error) {
	where, args := missionWhere(find)

	order := "created_ts DESC"
	if find.OrderByCreatedTsAsc {
		order = "created_ts ASC"
	}

	query := `
		SELECT id, uid, creator_id, title, status, report, embedding, created_ts, updated_ts
		FROM mission
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order
	if find.Limit != nil {
		query, args = query+" LIMIT "+placeholder(len(args)+1), append(args, *find.Limit)
	}
	if find.Offset != nil {
		query, args = query+" OFFSET "+placeholder(len(args)+1), append(args, *find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list missions")
	}
	defer rows.Close()

	list := []*store.Mission{}
	for rows.Next() {
		mission, err := scanMission(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan mission")
		}
		list = append(list, mission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// CountMissions counts missions matching the find condition. Limit/offset are
// ignored so the count covers the whole filter.
func (d *DB) CountMissions(ctx context.Context, find *store.FindMission) (int, error) {
	where, args := missionWhere(find)
	query := `SELECT COUNT(*) FROM mission WHERE ` + strings.Join(where, " AND ")

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count missions")
	}
	return count, nil
}

// UpdateMissionTitle renames a mission, scoped to its creator.
func (d *DB) UpdateMissionTitle(ctx context.Context, update *store.UpdateMissionTitle) (*store.Mission, error) {
	stmt := `
		UPDATE mission
		SET title = ` + placeholder(1) + `, updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = ` + placeholder(2) + ` AND creator_id = ` + placeholder(3) + `
		RETURNING id, uid, creator_id, title, status, report, embedding, created_ts, updated_ts
	`
	row := d.db.QueryRowContext(ctx, stmt, update.Title, update.ID, update.CreatorID)
	mission, err := scanMission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("mission %d not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update mission title")
	}
	return mission, nil
}

// FinishMission writes status, report and embedding in one atomic update.
// The status guard keeps terminal missions from being reopened.
func (d *DB) FinishMission(ctx context.Context, finish *store.FinishMission) (*store.Mission, error) {
	var embedding any
	if len(finish.Embedding) > 0 {
		embedding = pgvector.NewVector(finish.Embedding)
	}

	stmt := `
		UPDATE mission
		SET status = ` + placeholder(1) + `,
			report = ` + placeholder(2) + `,
			embedding = ` + placeholder(3) + `,
			updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = ` + placeholder(4) + ` AND status = ` + placeholder(5) + `
		RETURNING id, uid, creator_id, title, status, report, embedding, created_ts, updated_ts
	`
	row := d.db.QueryRowContext(ctx, stmt,
		finish.Status,
		finish.Report,
		embedding,
		finish.ID,
		store.MissionInitializing,
	)
	mission, err := scanMission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("mission %d is not initializing", finish.ID)
		}
		return nil, errors.Wrap(err, "failed to finish mission")
	}
	return mission, nil
}

// DeleteMission deletes a mission; notes cascade at the schema level.
func (d *DB) DeleteMission(ctx context.Context, delete *store.DeleteMission) error {
	stmt := `DELETE FROM mission WHERE id = ` + placeholder(1) + ` AND creator_id = ` + placeholder(2)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID, delete.CreatorID)
	if err != nil {
		return errors.Wrap(err, "failed to delete mission")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("mission %d not found", delete.ID)
	}
	return nil
}

// SearchMissions performs hybrid search in a single query: a row qualifies by
// case-insensitive title match or by vector distance below the threshold, and
// the result is ranked strictly by ascending distance to the query vector.
func (d *DB) SearchMissions(ctx context.Context, opts *store.MissionSearchOptions) ([]*store.MissionWithDistance, error) {
	vector := pgvector.NewVector(opts.Vector)

	where, args := []string{}, []any{}
	args = append(args, vector)
	where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, opts.CreatorID)
	if opts.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *opts.Status)
	}
	pattern := "%" + opts.Search + "%"
	where = append(where, "(title ILIKE "+placeholder(len(args)+1)+
		" OR (embedding IS NOT NULL AND embedding <=> $1 < "+placeholder(len(args)+2)+"))")
	args = append(args, pattern, opts.Threshold)

	query := `
		SELECT id, uid, creator_id, title, status, report, embedding, created_ts, updated_ts,
			embedding <=> $1 AS distance
		FROM mission
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> $1 ASC NULLS LAST
		LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search missions")
	}
	defer rows.Close()

	list := []*store.MissionWithDistance{}
	for rows.Next() {
		var mission store.Mission
		var report, embedding sql.NullString
		var distance sql.NullFloat64
		err := rows.Scan(
			&mission.ID,
			&mission.UID,
			&mission.CreatorID,
			&mission.Title,
			&mission.Status,
			&report,
			&embedding,
			&mission.CreatedTs,
			&mission.UpdatedTs,
			&distance,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan mission")
		}
		if report.Valid {
			mission.Report = &report.String
		}
		if embedding.Valid {
			var vector pgvector.Vector
			if err := vector.Scan(embedding.String); err != nil {
				return nil, errors.Wrap(err, "failed to decode embedding")
			}
			mission.Embedding = vector.Slice()
		}
		result := &store.MissionWithDistance{Mission: &mission}
		if distance.Valid {
			result.Distance = &distance.Float64
		}
		list = append(list, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func missionWhere(find *store.FindMission) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}
	if find.TitleContains != nil {
		where, args = append(where, "title ILIKE "+placeholder(len(args)+1)), append(args, "%"+*find.TitleContains+"%")
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMission(row rowScanner) (*store.Mission, error) {
	var mission store.Mission
	var report, embedding sql.NullString
	err := row.Scan(
		&mission.ID,
		&mission.UID,
		&mission.CreatorID,
		&mission.Title,
		&mission.Status,
		&report,
		&embedding,
		&mission.CreatedTs,
		&mission.UpdatedTs,
	)
	if err != nil {
		return nil, err
	}
	if report.Valid {
		mission.Report = &report.String
	}
	if embedding.Valid {
		var vector pgvector.Vector
		if err := vector.Scan(embedding.String); err != nil {
			return nil, errors.Wrap(err, "failed to decode embedding")
		}
		mission.Embedding = vector.Slice()
	}
	return &mission, nil
}
