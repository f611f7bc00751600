package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/monanga/monanga-business/internal/data/pgxutil"
	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	apperrors "github.com/monanga/monanga-business/internal/errors"
)

// SessionRepo provides database operations for sessions.
type SessionRepo struct {
	DB *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db}
}

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	if sess.UserID == "" {
		return errors.New("session user id is required")
	}

	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO sessions (id, user_id, expires_at, created_at)
			VALUES ($1, $2, $3, $4)`,
			sess.ID, sess.UserID, sess.ExpiresAt.UTC(), createdAt)
		return execErr
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// Get retrieves a session by ID. Returns a NotFound AppError when absent.
func (r *SessionRepo) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}

	var out domainauth.Session
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.Session])
		return err
	}); err != nil {
		return domainauth.Session{}, apperrors.MapDBError(err)
	}
	return out, nil
}

// Delete removes a session row. Idempotent: deleting an absent session is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
		return execErr
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// DeleteByUser removes all sessions belonging to a user.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
		return execErr
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry has passed. Intended for a
// periodic cleanup; validation also deletes expired sessions lazily.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var removed int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx,
			`DELETE FROM sessions WHERE expires_at < $1`, time.Now().UTC())
		if execErr != nil {
			return execErr
		}
		removed = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return removed, nil
}
