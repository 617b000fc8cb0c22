package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/cool-todo/internal/domain"
)

// resetRepo implements domain.PasswordResetRepository using SQLite.
type resetRepo struct {
	db *sql.DB
}

func (r *resetRepo) Create(ctx context.Context, reset *domain.PasswordReset) error {
	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_resets (token_hash, uid, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		reset.TokenHash, reset.UID, reset.CreatedAt.UTC(), reset.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

func (r *resetRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordReset, error) {
	p := &domain.PasswordReset{}
	err := r.db.QueryRowContext(ctx,
		`SELECT token_hash, uid, created_at, expires_at, used_at FROM password_resets WHERE token_hash = ?`,
		tokenHash,
	).Scan(&p.TokenHash, &p.UID, &p.CreatedAt, &p.ExpiresAt, &p.UsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get password reset: %w", err)
	}
	return p, nil
}

func (r *resetRepo) MarkUsed(ctx context.Context, tokenHash string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE token_hash = ? AND used_at IS NULL`,
		at.UTC(), tokenHash,
	)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
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

func (r *resetRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ? OR used_at IS NOT NULL`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired password resets: %w", err)
	}
	return result.RowsAffected()
}
