package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spendtrack/internal/core"
)

// CreateSession binds a token to a username until expiresAt.
func (r *SQLiteRepository) CreateSession(ctx context.Context, token, username string, expiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, username, expires_at, last_activity) VALUES (?, ?, ?, ?)`,
		token, username, expiresAt.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// ResolveSession returns the username bound to an unexpired token and bumps
// its last_activity. It implements auth.SessionResolver.
func (r *SQLiteRepository) ResolveSession(ctx context.Context, token string) (string, error) {
	var username string
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`SELECT username FROM sessions WHERE token = ? AND expires_at > ?`,
		token, now,
	).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}

	// Best effort; a failed bump never invalidates the lookup.
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ? WHERE token = ?`, now, token); err != nil {
		r.logger.WarnContext(ctx, "Failed to bump session activity", "error", err)
	}
	return username, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were dropped. The cleanup loop in main calls this periodically.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows: %w", err)
	}
	return n, nil
}
