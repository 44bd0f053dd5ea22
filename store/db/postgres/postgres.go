package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	// Import the Postgres driver.
	_ "github.com/lib/pq"

	"github.com/nexuslabs/nexus/internal/profile"
	"github.com/nexuslabs/nexus/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a Postgres database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := postgresDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	driver := DB{db: postgresDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema. The vector column requires the pgvector
// extension; its dimension comes from the embedding configuration.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS mission (
			id SERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			creator_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Initializing',
			report TEXT,
			embedding vector(%d),
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`, d.vectorDimensions()),
		`CREATE INDEX IF NOT EXISTS idx_mission_creator_created_ts ON mission (creator_id, created_ts DESC)`,
		`CREATE TABLE IF NOT EXISTS note (
			id SERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			mission_id INTEGER NOT NULL REFERENCES mission (id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_note_mission_id ON note (mission_id)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration: %s", stmt)
		}
	}
	return nil
}

func (d *DB) vectorDimensions() int {
	if d.profile != nil && d.profile.EmbeddingDimensions > 0 {
		return d.profile.EmbeddingDimensions
	}
	return 384
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
