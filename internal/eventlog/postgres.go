package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conduit/internal/domain"
	txcontext "conduit/pkg/platform/tx"
)

// PostgresLog persists events in the events table. The table carries a
// bigserial seq column so replay has a total order even when occurred_at
// timestamps collide.
//
// Schema:
//
//	CREATE TABLE events (
//	    seq            BIGSERIAL PRIMARY KEY,
//	    id             UUID NOT NULL UNIQUE,
//	    aggregate_id   TEXT NOT NULL,
//	    event_type     TEXT NOT NULL,
//	    payload        JSONB NOT NULL,
//	    occurred_at    TIMESTAMPTZ NOT NULL,
//	    correlation_id TEXT,
//	    caused_by      TEXT
//	);
//	CREATE INDEX events_aggregate_idx ON events (aggregate_id, occurred_at, seq);
type PostgresLog struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresLogOption configures a PostgresLog.
type PostgresLogOption func(*PostgresLog)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresLogOption {
	return func(l *PostgresLog) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewPostgresLog constructs a PostgreSQL-backed event log.
func NewPostgresLog(db *sql.DB, opts ...PostgresLogOption) *PostgresLog {
	l := &PostgresLog{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Append inserts one event. It joins an enclosing context transaction when
// one is present so business writes and their events can share a commit.
func (l *PostgresLog) Append(ctx context.Context, event domain.StoredEvent) (string, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.clock()
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}

	query := `
		INSERT INTO events (id, aggregate_id, event_type, payload, occurred_at, correlation_id, caused_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = txcontext.ExecutorFor(ctx, l.db).ExecContext(ctx, query,
		event.ID,
		event.AggregateID,
		event.EventType,
		payload,
		event.OccurredAt,
		nullable(event.CorrelationID),
		nullable(event.CausedBy),
	)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return event.ID, nil
}

// Replay returns the aggregate's events ordered by occurred_at, then seq.
func (l *PostgresLog) Replay(ctx context.Context, aggregateID string) ([]domain.StoredEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, occurred_at, correlation_id, caused_by
		FROM events
		WHERE aggregate_id = $1
		ORDER BY occurred_at ASC, seq ASC
	`
	rows, err := txcontext.ExecutorFor(ctx, l.db).QueryContext(ctx, query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("replay events: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredEvent
	for rows.Next() {
		event, _, err := scanEvent(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("replay events: %w", err)
	}
	return out, nil
}

// ReadFrom returns up to limit events with seq > after, in append order.
func (l *PostgresLog) ReadFrom(ctx context.Context, after int64, limit int) ([]Sequenced, error) {
	query := `
		SELECT seq, id, aggregate_id, event_type, payload, occurred_at, correlation_id, caused_by
		FROM events
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2
	`
	rows, err := txcontext.ExecutorFor(ctx, l.db).QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var out []Sequenced
	for rows.Next() {
		event, seq, err := scanEvent(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, Sequenced{Offset: seq, Event: event})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}

func scanEvent(rows *sql.Rows, withSeq bool) (domain.StoredEvent, int64, error) {
	var (
		event         domain.StoredEvent
		seq           int64
		payload       []byte
		correlationID sql.NullString
		causedBy      sql.NullString
	)

	var err error
	if withSeq {
		err = rows.Scan(&seq, &event.ID, &event.AggregateID, &event.EventType, &payload, &event.OccurredAt, &correlationID, &causedBy)
	} else {
		err = rows.Scan(&event.ID, &event.AggregateID, &event.EventType, &payload, &event.OccurredAt, &correlationID, &causedBy)
	}
	if err != nil {
		return domain.StoredEvent{}, 0, fmt.Errorf("scan event: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return domain.StoredEvent{}, 0, fmt.Errorf("decode event payload: %w", err)
	}
	event.Payload = decoded
	event.CorrelationID = correlationID.String
	event.CausedBy = causedBy.String
	return event, seq, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
