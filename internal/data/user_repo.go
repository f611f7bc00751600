package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/monanga/monanga-business/internal/data/pgxutil"
	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
	apperrors "github.com/monanga/monanga-business/internal/errors"
)

const userColumns = `id, email, password_hash, first_name, last_name, username, image,
	email_verified, role, reset_token, reset_token_expires_at, created_at, updated_at`

// UserRepo provides database operations for users.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// Create inserts a new user. Email must already be normalized by the caller.
func (r *UserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}

	now := time.Now().UTC()
	var out model.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (
				id, email, password_hash, first_name, last_name, username, image,
				email_verified, role, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
			) RETURNING `+userColumns,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.FirstName,
			user.LastName,
			user.Username,
			user.Image,
			user.EmailVerified,
			user.Role,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getByQuery(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getByQuery(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepo) getByQuery(ctx context.Context, query, arg string) (*model.User, error) {
	var out model.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// UpdatePassword stores a new password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
}

// SetResetToken stores a password-reset token with its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET reset_token = $2, reset_token_expires_at = $3, updated_at = $4 WHERE id = $1`,
		id, token, expiresAt.UTC(), time.Now().UTC())
}

// ClearResetToken removes any pending reset token.
func (r *UserRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE users SET reset_token = NULL, reset_token_expires_at = NULL, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
}

// UsernameExists reports whether a username is already taken.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	}); err != nil {
		return false, apperrors.MapDBError(err)
	}
	return exists, nil
}

// DeleteWithSessions removes the user and all their sessions in one
// transaction. Sessions go first so the delete never trips the FK even on
// schemas without ON DELETE CASCADE.
func (r *UserRepo) DeleteWithSessions(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("user id is required")
	}

	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		if _, delErr := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, id); delErr != nil {
			return delErr
		}
		tag, delErr := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if delErr != nil {
			return delErr
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// UpsertOAuthLogin creates-or-refreshes a user keyed by email and records
// the session in the same transaction. On conflict the profile fields are
// refreshed but incoming empty values never clobber existing ones, and a
// provider cannot un-verify an email.
func (r *UserRepo) UpsertOAuthLogin(
	ctx context.Context,
	user *model.User,
	sess domainauth.Session,
) (*model.User, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}
	if sess.ID == "" {
		return nil, errors.New("session id is required")
	}

	now := time.Now().UTC()
	var out model.User
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			INSERT INTO users (
				id, email, password_hash, first_name, last_name, username, image,
				email_verified, role, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
			)
			ON CONFLICT (lower(email)) DO UPDATE SET
				first_name     = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
				last_name      = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name),
				image          = COALESCE(EXCLUDED.image, users.image),
				email_verified = users.email_verified OR EXCLUDED.email_verified,
				updated_at     = EXCLUDED.updated_at
			RETURNING `+userColumns,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.FirstName,
			user.LastName,
			user.Username,
			user.Image,
			user.EmailVerified,
			user.Role,
			now,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		rows.Close()
		if err != nil {
			return err
		}

		createdAt := sess.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO sessions (id, user_id, expires_at, created_at)
			VALUES ($1, $2, $3, $4)`,
			sess.ID, out.ID, sess.ExpiresAt.UTC(), createdAt)
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

func (r *UserRepo) exec(ctx context.Context, query string, args ...any) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("update user: %w", err))
	}
	return nil
}
