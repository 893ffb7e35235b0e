package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"civreg/internal/event/models"
	"civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

// Schema creates the tables this package owns. The unique index on
// LOWER(registration_id) is the system's hard uniqueness guarantee;
// identity-number fields inside the JSON document are deliberately not
// uniquely indexed (duplicate detection stays best-effort, as documented on
// the integrity checker).
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	event_type TEXT NOT NULL,
	registration_id TEXT NOT NULL,
	status TEXT NOT NULL,
	document JSONB NOT NULL,
	owner_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS events_registration_id_lower
	ON events (LOWER(registration_id));
CREATE INDEX IF NOT EXISTS events_type_status ON events (event_type, status);
CREATE INDEX IF NOT EXISTS events_owner ON events (owner_id);

CREATE TABLE IF NOT EXISTS sequences (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);
`

// PostgresEventStore persists events as JSONB documents. The full aggregate
// (data, corrections, certificate requests, decision metadata) is stored in
// one document column; the columns alongside it exist for indexing and
// listing.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) Create(ctx context.Context, event *models.Event) error {
	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, event_type, registration_id, status, document, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		event.ID.String(),
		string(event.Type),
		event.RegistrationID,
		string(event.Status),
		doc,
		event.OwnerID.String(),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) Update(ctx context.Context, event *models.Event) error {
	return s.update(ctx, s.db, event)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresEventStore) update(ctx context.Context, db execer, event *models.Event) error {
	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE events
		SET status = $2, document = $3, updated_at = $4
		WHERE id = $1
	`,
		event.ID.String(),
		string(event.Status),
		doc,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresEventStore) FindByID(ctx context.Context, id domain.EventID) (*models.Event, error) {
	return s.findOne(ctx, `SELECT document FROM events WHERE id = $1`, id.String())
}

func (s *PostgresEventStore) FindByRegistrationID(ctx context.Context, registrationID string) (*models.Event, error) {
	return s.findOne(ctx,
		`SELECT document FROM events WHERE LOWER(registration_id) = LOWER($1)`,
		strings.TrimSpace(registrationID))
}

func (s *PostgresEventStore) findOne(ctx context.Context, query string, arg any) (*models.Event, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return unmarshalEvent(doc)
}

func (s *PostgresEventStore) ListByOwner(ctx context.Context, ownerID domain.UserID) ([]*models.Event, error) {
	return s.list(ctx,
		`SELECT document FROM events WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID.String())
}

func (s *PostgresEventStore) ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error) {
	return s.list(ctx,
		`SELECT document FROM events WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
}

func (s *PostgresEventStore) ListByTypeAndStatuses(ctx context.Context, t models.EventType, statuses []models.EventStatus) ([]*models.Event, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return s.list(ctx,
		`SELECT document FROM events WHERE event_type = $1 AND status = ANY($2) ORDER BY created_at`,
		string(t), names)
}

func (s *PostgresEventStore) list(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event, err := unmarshalEvent(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *PostgresEventStore) ListRegistrationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT registration_id FROM events`)
	if err != nil {
		return nil, fmt.Errorf("query registration ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan registration id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registration ids: %w", err)
	}
	return out, nil
}

func (s *PostgresEventStore) Delete(ctx context.Context, id domain.EventID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute validates and mutates the event while holding a row lock
// (SELECT ... FOR UPDATE), so concurrent transitions on the same record
// serialize at the database.
func (s *PostgresEventStore) Execute(ctx context.Context, id domain.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var doc []byte
	err = tx.QueryRowContext(ctx, `SELECT document FROM events WHERE id = $1 FOR UPDATE`, id.String()).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock event: %w", err)
	}

	event, err := unmarshalEvent(doc)
	if err != nil {
		return nil, err
	}
	if err := validate(event); err != nil {
		return nil, err
	}
	mutate(event)

	if err := s.update(ctx, tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return event, nil
}

func unmarshalEvent(doc []byte) (*models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(doc, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// isUniqueViolation detects Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// PostgresSequenceStore implements the atomic counter with a single
// INSERT ... ON CONFLICT ... RETURNING statement — one round trip, no
// read-then-write window.
type PostgresSequenceStore struct {
	db *sql.DB
}

func NewPostgresSequenceStore(db *sql.DB) *PostgresSequenceStore {
	return &PostgresSequenceStore{db: db}
}

func (s *PostgresSequenceStore) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequences (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next sequence value: %w", err)
	}
	return value, nil
}
