package history

import (
	"context"
	"database/sql"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Append inserts the entry and prunes the session's log down to Limit rows.
func (r *PGRepo) Append(ctx context.Context, entry Entry) error {
	const insert = `
INSERT INTO application_history (
    id,
    session_id,
    kind,
    recipient,
    subject,
    body,
    action,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	const prune = `
DELETE FROM application_history
WHERE session_id = $1
  AND id NOT IN (
    SELECT id FROM application_history
    WHERE session_id = $1
    ORDER BY created_at DESC
    LIMIT $2
  )`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insert,
		entry.ID,
		entry.SessionID,
		string(entry.Kind),
		entry.Recipient,
		entry.Subject,
		entry.Body,
		entry.Action,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, prune, entry.SessionID, Limit); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return tx.Commit()
}

// Recent returns up to limit entries for the session, newest first.
func (r *PGRepo) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	const query = `
SELECT id, session_id, kind, recipient, subject, body, action, created_at
FROM application_history
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, sessionID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Recipient, &e.Subject, &e.Body, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
