package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/model"
)

// UserRepository provides data access methods for the users table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository with the provided database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A unique-constraint violation on the username
// maps to ErrDuplicateUsername.
func (r *UserRepository) Create(user model.User) error {
	query := `
          INSERT INTO users (id, username, password_hash)
          VALUES (?, ?, ?)
      `
	_, err := r.db.Exec(query, user.ID, user.Username, user.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperrors.ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(username string) (model.User, error) {
	query := `
          SELECT id, username, password_hash, created_at
          FROM users
          WHERE username = ?
      `
	var u model.User

	err := r.db.QueryRow(query, username).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}

	return u, nil
}

// GetAll retrieves every registered user. Used by the scheduled snapshot job.
func (r *UserRepository) GetAll() ([]model.User, error) {
	query := `
          SELECT id, username, password_hash, created_at
          FROM users
      `
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users table: %w", err)
	}
	defer rows.Close()

	users := []model.User{}

	for rows.Next() {
		var u model.User
		err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan users table results: %w", err)
		}
		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users table: %w", err)
	}

	return users, nil
}
