package scope

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"conduit/internal/domain"
	txcontext "conduit/pkg/platform/tx"
)

// PostgresWorkspaceStore persists workspaces and grants.
//
// Schema:
//
//	CREATE TABLE workspaces (
//	    id         TEXT PRIMARY KEY,
//	    owner_id   TEXT NOT NULL,
//	    name       TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE grants (
//	    id           UUID PRIMARY KEY,
//	    workspace_id TEXT NOT NULL REFERENCES workspaces (id),
//	    user_id      TEXT NOT NULL,
//	    role         TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    revoked_at   TIMESTAMPTZ
//	);
//	CREATE UNIQUE INDEX grants_one_active_idx
//	    ON grants (workspace_id, user_id) WHERE status = 'active';
//
// The partial unique index is the duplicate-active-grant guard: two
// concurrent CreateGrant calls resolve at the index, not at a read.
type PostgresWorkspaceStore struct {
	db *sql.DB
}

// NewPostgresWorkspaceStore constructs a PostgreSQL-backed workspace store.
func NewPostgresWorkspaceStore(db *sql.DB) *PostgresWorkspaceStore {
	return &PostgresWorkspaceStore{db: db}
}

func (s *PostgresWorkspaceStore) Find(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	var ws domain.Workspace
	err := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM workspaces WHERE id = $1`,
		workspaceID,
	).Scan(&ws.ID, &ws.OwnerID, &ws.Name, &ws.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Workspace{}, ErrNotFound
		}
		return domain.Workspace{}, fmt.Errorf("find workspace: %w", err)
	}
	return ws, nil
}

func (s *PostgresWorkspaceStore) Create(ctx context.Context, ws domain.Workspace) error {
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now()
	}
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx,
		`INSERT INTO workspaces (id, owner_id, name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		ws.ID, ws.OwnerID, ws.Name, ws.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

func (s *PostgresWorkspaceStore) ActiveGrants(ctx context.Context, workspaceID string) ([]domain.Grant, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx,
		`SELECT id, workspace_id, user_id, role, status, created_at, revoked_at
		 FROM grants
		 WHERE workspace_id = $1 AND status = 'active'
		 ORDER BY created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []domain.Grant
	for rows.Next() {
		var (
			grant     domain.Grant
			revokedAt sql.NullTime
		)
		if err := rows.Scan(&grant.ID, &grant.WorkspaceID, &grant.UserID, &grant.Role, &grant.Status, &grant.CreatedAt, &revokedAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		if revokedAt.Valid {
			grant.RevokedAt = &revokedAt.Time
		}
		out = append(out, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return out, nil
}

// CreateGrant inserts atomically against the partial unique index. A
// conflicting active grant makes the insert a no-op, which surfaces as
// ErrGrantExists via the rows-affected check.
func (s *PostgresWorkspaceStore) CreateGrant(ctx context.Context, grant domain.Grant) error {
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx,
		`INSERT INTO grants (id, workspace_id, user_id, role, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (workspace_id, user_id) WHERE status = 'active' DO NOTHING`,
		grant.ID, grant.WorkspaceID, grant.UserID, grant.Role, grant.Status, grant.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrGrantExists
		}
		return fmt.Errorf("insert grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert grant rows affected: %w", err)
	}
	if affected == 0 {
		return ErrGrantExists
	}
	return nil
}

func (s *PostgresWorkspaceStore) RevokeGrant(ctx context.Context, workspaceID, userID string, at time.Time) error {
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx,
		`UPDATE grants SET status = 'revoked', revoked_at = $3
		 WHERE workspace_id = $1 AND user_id = $2 AND status = 'active'`,
		workspaceID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke grant rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
