package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/cool-todo/internal/domain"
)

// userRepo implements domain.UserRepository using SQLite.
type userRepo struct {
	db *sql.DB
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	username := strings.ToLower(user.Username)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (uid, email, username, full_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.UID, user.Email, nullIfEmpty(username), user.FullName, now, now,
	)
	if err != nil {
		if column, ok := uniqueViolation(err); ok && column == "users.username" {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.Username = username
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE uid = ?`, uid)
}

// GetByUsername matches case-insensitively; usernames are stored lowercase.
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE username = ?`, strings.ToLower(username))
}

func (r *userRepo) Update(ctx context.Context, uid string, patch domain.ProfilePatch) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, email = ?, updated_at = ? WHERE uid = ?`,
		patch.FullName, patch.Email, time.Now().UTC(), uid,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepo) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	u := &domain.User{}
	var username sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, email, username, full_name, created_at, updated_at FROM users `+where, arg,
	).Scan(&u.UID, &u.Email, &username, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.Username = username.String
	return u, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
