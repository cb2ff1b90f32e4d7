// Credential store: the UserStore interface and its PostgreSQL
// implementation. The interface exists so that services and middleware can be
// exercised in tests against in-memory fakes; PgUserStore is the production
// implementation backed by the shared pgx pool.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/taskman-go/apperror"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// UserStore persists user records and their issued tokens. It exclusively
// owns the users and user_tokens tables; no other package touches them.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id int) (*User, error)
	UpdateUser(ctx context.Context, user *User) (*User, error)
	// DeleteUserCascade removes the user together with every task and token
	// owned by that id, inside a single transaction. The store has no
	// referential-integrity help for this; the cascade is application logic.
	DeleteUserCascade(ctx context.Context, id int) error

	AddToken(ctx context.Context, userID int, token string) error
	RemoveToken(ctx context.Context, userID int, token string) error
	RemoveAllTokens(ctx context.Context, userID int) error
	// HasToken reports whether the exact token string is still in the user's
	// active token list. This backs per-token revocation.
	HasToken(ctx context.Context, userID int, token string) (bool, error)

	SetAvatar(ctx context.Context, userID int, data []byte) error
	ClearAvatar(ctx context.Context, userID int) error
	GetAvatar(ctx context.Context, userID int) ([]byte, error)
}

// PgUserStore is the PostgreSQL-backed UserStore.
type PgUserStore struct {
	db *pgxpool.Pool
}

// NewPgUserStore creates a new PgUserStore on top of the shared pool.
func NewPgUserStore(db *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{db: db}
}

// CreateUser inserts a new user row. A duplicate email surfaces as a
// ConflictError; the caller is expected to have lowercased the email already.
func (s *PgUserStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	query := `INSERT INTO users (name, age, email, password)
              VALUES ($1, $2, $3, $4)
              RETURNING id, created_at, updated_at`
	err := s.db.QueryRow(ctx, query, user.Name, user.Age, user.Email, user.HashedPassword).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "email") {
			return nil, apperror.NewConflictError("email already exists", nil)
		}
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their (lowercased) email address.
func (s *PgUserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	query := `SELECT id, name, age, email, password, created_at, updated_at
              FROM users WHERE email = $1`
	err := s.db.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&user.ID, &user.Name, &user.Age, &user.Email, &user.HashedPassword,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by email", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by their id.
func (s *PgUserStore) GetUserByID(ctx context.Context, id int) (*User, error) {
	var user User
	query := `SELECT id, name, age, email, password, created_at, updated_at
              FROM users WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Age, &user.Email, &user.HashedPassword,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", id), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by ID", err)
	}
	return &user, nil
}

// UpdateUser persists the mutable profile fields of an already-validated user
// record and returns the stored row.
func (s *PgUserStore) UpdateUser(ctx context.Context, user *User) (*User, error) {
	query := `UPDATE users
              SET name = $1, age = $2, email = $3, password = $4, updated_at = now()
              WHERE id = $5
              RETURNING updated_at`
	err := s.db.QueryRow(ctx, query, user.Name, user.Age, user.Email, user.HashedPassword, user.ID).
		Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", user.ID), nil)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "email") {
			return nil, apperror.NewConflictError("email already exists", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update user", err)
	}
	return user, nil
}

// DeleteUserCascade removes the user's tasks, then tokens, then the user row,
// all inside one transaction so the cascade invariant survives failures.
func (s *PgUserStore) DeleteUserCascade(ctx context.Context, id int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer func() {
		// Rollback is a no-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE owner = $1`, id); err != nil {
		return apperror.NewDatabaseError("failed to delete user's tasks", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, id); err != nil {
		return apperror.NewDatabaseError("failed to delete user's tokens", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", id), nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewDatabaseError("failed to commit user deletion", err)
	}
	return nil
}

// AddToken appends a newly issued token to the user's token list.
func (s *PgUserStore) AddToken(ctx context.Context, userID int, token string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_tokens (user_id, token) VALUES ($1, $2)`, userID, token)
	if err != nil {
		return apperror.NewDatabaseError("failed to store token", err)
	}
	return nil
}

// RemoveToken deletes one token from the user's token list.
func (s *PgUserStore) RemoveToken(ctx context.Context, userID int, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return apperror.NewDatabaseError("failed to remove token", err)
	}
	return nil
}

// RemoveAllTokens clears the user's token list.
func (s *PgUserStore) RemoveAllTokens(ctx context.Context, userID int) error {
	_, err := s.db.Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return apperror.NewDatabaseError("failed to remove tokens", err)
	}
	return nil
}

// HasToken reports whether the token is still active for the user.
func (s *PgUserStore) HasToken(ctx context.Context, userID int, token string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM user_tokens WHERE user_id = $1 AND token = $2)`
	if err := s.db.QueryRow(ctx, query, userID, token).Scan(&exists); err != nil {
		return false, apperror.NewDatabaseError("failed to check token", err)
	}
	return exists, nil
}

// SetAvatar stores the avatar bytes for the user.
func (s *PgUserStore) SetAvatar(ctx context.Context, userID int, data []byte) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET avatar = $1, updated_at = now() WHERE id = $2`, data, userID)
	if err != nil {
		return apperror.NewDatabaseError("failed to store avatar", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", userID), nil)
	}
	return nil
}

// ClearAvatar removes the avatar bytes for the user.
func (s *PgUserStore) ClearAvatar(ctx context.Context, userID int) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET avatar = NULL, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return apperror.NewDatabaseError("failed to clear avatar", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", userID), nil)
	}
	return nil
}

// GetAvatar fetches the avatar bytes for the user. A user without an avatar
// yields a NotFoundError, same as a missing user.
func (s *PgUserStore) GetAvatar(ctx context.Context, userID int) ([]byte, error) {
	var avatar []byte
	err := s.db.QueryRow(ctx, `SELECT avatar FROM users WHERE id = $1`, userID).Scan(&avatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", userID), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get avatar", err)
	}
	if len(avatar) == 0 {
		return nil, apperror.NewNotFoundError("avatar not found", nil)
	}
	return avatar, nil
}
