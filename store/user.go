package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/uid"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *Store) CreateUser(ctx context.Context, q Querier, username, email, hashedPassword string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		INSERT INTO users (username, email, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING id`,
		username, email, hashedPassword,
	).Scan(&id)
	if isUniqueViolation(err) {
		return "", ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *Store) UserByID(ctx context.Context, q Querier, userID string) (model.User, error) {
	return s.scanUser(q.QueryRowContext(ctx, `
		SELECT id, username, email, hashed_password, last_changed_password, created
		FROM users WHERE id = $1`,
		uid.Normalize(userID),
	))
}

func (s *Store) UserByUsername(ctx context.Context, q Querier, username string) (model.User, error) {
	return s.scanUser(q.QueryRowContext(ctx, `
		SELECT id, username, email, hashed_password, last_changed_password, created
		FROM users WHERE username = $1`,
		username,
	))
}

func (s *Store) UserByEmail(ctx context.Context, q Querier, email string) (model.User, error) {
	return s.scanUser(q.QueryRowContext(ctx, `
		SELECT id, username, email, hashed_password, last_changed_password, created
		FROM users WHERE email = $1`,
		email,
	))
}

func (s *Store) scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email,
		&user.HashedPassword, &user.LastChangedPassword, &user.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUser changes the non-nil fields. A new password hash also bumps
// last_changed_password, which invalidates previously issued JWTs.
func (s *Store) UpdateUser(ctx context.Context, q Querier, userID string, username, email, hashedPassword *string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE users
		SET username        = COALESCE($2, username),
		    email           = COALESCE($3, email),
		    hashed_password = COALESCE($4, hashed_password),
		    last_changed_password = CASE
		        WHEN $4::text IS NULL THEN last_changed_password
		        ELSE now()
		    END
		WHERE id = $1`,
		uid.Normalize(userID), username, email, hashedPassword,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, q Querier, userID string) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		uid.Normalize(userID),
	)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateResetPasswordToken(ctx context.Context, q Querier, userID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		INSERT INTO reset_password_tokens (user_id)
		VALUES ($1)
		RETURNING id`,
		uid.Normalize(userID),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert reset password token: %w", err)
	}
	return id, nil
}

// RedeemResetPasswordToken sets a new password hash for the user an
// unexpired reset token points at, then discards the token. Run in a
// transaction so a failed update never burns the token.
func (s *Store) RedeemResetPasswordToken(ctx context.Context, q Querier, tokenID, newHashedPassword string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE users u
		SET hashed_password = $2, last_changed_password = now()
		FROM reset_password_tokens t
		WHERE t.id = $1 AND t.user_id = u.id AND t.expired > now()`,
		uid.Normalize(tokenID), newHashedPassword,
	)
	if err != nil {
		return fmt.Errorf("redeem reset password token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("redeem reset password token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	_, err = q.ExecContext(ctx,
		`DELETE FROM reset_password_tokens WHERE id = $1`,
		uid.Normalize(tokenID),
	)
	if err != nil {
		return fmt.Errorf("discard reset password token: %w", err)
	}
	return nil
}
