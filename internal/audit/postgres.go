package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"civreg/pkg/domain"
)

const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id BIGSERIAL PRIMARY KEY,
	event_id UUID NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	entry JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_entries_event ON audit_entries (event_id, occurred_at);
`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (event_id, occurred_at, entry) VALUES ($1, $2, $3)`,
		entry.EventID.String(), entry.Timestamp, payload)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID domain.EventID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry FROM audit_entries WHERE event_id = $1 ORDER BY occurred_at`,
		eventID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal audit entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
