package projection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"conduit/internal/domain"
	txcontext "conduit/pkg/platform/tx"
)

// PostgresRegistry persists projection checkpoints.
//
// Schema:
//
//	CREATE TABLE projection_versions (
//	    projection_name    TEXT PRIMARY KEY,
//	    last_event_offset  BIGINT NOT NULL,
//	    read_model_version TEXT NOT NULL,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
type PostgresRegistry struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresRegistryOption configures a PostgresRegistry.
type PostgresRegistryOption func(*PostgresRegistry)

// WithPostgresRegistryClock sets the clock function for testability.
func WithPostgresRegistryClock(clock func() time.Time) PostgresRegistryOption {
	return func(r *PostgresRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewPostgresRegistry constructs a PostgreSQL-backed registry.
func NewPostgresRegistry(db *sql.DB, opts ...PostgresRegistryOption) *PostgresRegistry {
	r := &PostgresRegistry{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *PostgresRegistry) GetVersion(ctx context.Context, projectionName string) (domain.ProjectionVersionRecord, error) {
	var rec domain.ProjectionVersionRecord
	err := txcontext.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT projection_name, last_event_offset, read_model_version, updated_at
		 FROM projection_versions WHERE projection_name = $1`,
		projectionName,
	).Scan(&rec.ProjectionName, &rec.LastEventOffset, &rec.ReadModelVersion, &rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ProjectionVersionRecord{}, ErrNotFound
		}
		return domain.ProjectionVersionRecord{}, fmt.Errorf("get projection version: %w", err)
	}
	return rec, nil
}

// UpsertVersion merge-writes the checkpoint. Identical input leaves the
// row untouched so updated_at only moves on real progress.
func (r *PostgresRegistry) UpsertVersion(ctx context.Context, projectionName string, lastEventOffset int64, readModelVersion string) error {
	_, err := txcontext.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO projection_versions (projection_name, last_event_offset, read_model_version, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (projection_name) DO UPDATE SET
		     last_event_offset = EXCLUDED.last_event_offset,
		     read_model_version = EXCLUDED.read_model_version,
		     updated_at = EXCLUDED.updated_at
		 WHERE projection_versions.last_event_offset IS DISTINCT FROM EXCLUDED.last_event_offset
		    OR projection_versions.read_model_version IS DISTINCT FROM EXCLUDED.read_model_version`,
		projectionName, lastEventOffset, readModelVersion, r.clock(),
	)
	if err != nil {
		return fmt.Errorf("upsert projection version: %w", err)
	}
	return nil
}
