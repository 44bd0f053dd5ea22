package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nexuslabs/nexus/store"
)

// CreateMission inserts a draft mission row.
func (d *DB) CreateMission(ctx context.Context, create *store.Mission) (*store.Mission, error) {
	stmt := `
		INSERT INTO mission (uid, creator_id, title, status, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
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
		query, args = query+" LIMIT ?", append(args, *find.Limit)
	}
	if find.Offset != nil {
		query, args = query+" OFFSET ?", append(args, *find.Offset)
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

// CountMissions counts missions matching the find condition.
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
		SET title = ?, updated_ts = ?
		WHERE id = ? AND creator_id = ?
		RETURNING id, uid, creator_id, title, status, report, embedding, created_ts, updated_ts
	`
	row := d.db.QueryRowContext(ctx, stmt, update.Title, time.Now().Unix(), update.ID, update.CreatorID)
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
		encoded, err := json.Marshal(finish.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode embedding")
		}
		embedding = string(encoded)
	}

	stmt := `
		UPDATE mission
		SET status = ?, report = ?, embedding = ?, updated_ts = ?
		WHERE id = ? AND status = ?
		RETURNING id, uid, creator_id, title, status, report, embedding, created_ts, updated_ts
	`
	row := d.db.QueryRowContext(ctx, stmt,
		finish.Status,
		finish.Report,
		embedding,
		time.Now().Unix(),
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

// DeleteMission deletes a mission; foreign keys cascade to its notes.
func (d *DB) DeleteMission(ctx context.Context, delete *store.DeleteMission) error {
	stmt := `DELETE FROM mission WHERE id = ? AND creator_id = ?`
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

// SearchMissions performs hybrid search with application-layer cosine
// distance: SQLite has no native vector operator, so candidate rows are
// loaded and ranked in Go with the same semantics as the Postgres driver.
func (d *DB) SearchMissions(ctx context.Context, opts *store.MissionSearchOptions) ([]*store.MissionWithDistance, error) {
	find := &store.FindMission{CreatorID: &opts.CreatorID, Status: opts.Status}
	candidates, err := d.ListMissions(ctx, find)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(opts.Search)
	matched := []*store.MissionWithDistance{}
	for _, mission := range candidates {
		var distance *float64
		if len(mission.Embedding) == len(opts.Vector) && len(mission.Embedding) > 0 {
			dist := cosineDistance(opts.Vector, mission.Embedding)
			distance = &dist
		}
		titleMatch := strings.Contains(strings.ToLower(mission.Title), needle)
		if !titleMatch && (distance == nil || *distance >= opts.Threshold) {
			continue
		}
		matched = append(matched, &store.MissionWithDistance{Mission: mission, Distance: distance})
	}

	// Closest first; rows without an embedding sort last.
	sort.SliceStable(matched, func(i, j int) bool {
		di, dj := matched[i].Distance, matched[j].Distance
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di < *dj
	})

	if opts.Offset >= len(matched) {
		return []*store.MissionWithDistance{}, nil
	}
	matched = matched[opts.Offset:]
	if len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// cosineDistance computes cosine distance (1 - similarity) between two vectors.
func cosineDistance(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}

func missionWhere(find *store.FindMission) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = ?"), append(args, *find.CreatorID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}
	if find.TitleContains != nil {
		where, args = append(where, "LOWER(title) LIKE ?"), append(args, "%"+strings.ToLower(*find.TitleContains)+"%")
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
		if err := json.Unmarshal([]byte(embedding.String), &mission.Embedding); err != nil {
			return nil, errors.Wrap(err, "failed to decode embedding")
		}
	}
	return &mission, nil
}
