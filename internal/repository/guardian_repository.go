package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

// GuardianRepository manages guardian bearer tokens.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository creates a new instance of GuardianRepository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// CreateToken persists a new guardian bearer token.
func (r *GuardianRepository) CreateToken(ctx context.Context, token *models.GuardianToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO guardian_tokens (id, student_id, token, expires_at, created_at, revoked, revoked_at) VALUES (:id, :student_id, :token, :expires_at, :created_at, :revoked, :revoked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create guardian token: %w", err)
	}
	return nil
}

// FindToken returns a guardian token by token string.
func (r *GuardianRepository) FindToken(ctx context.Context, token string) (*models.GuardianToken, error) {
	const query = `SELECT id, student_id, token, expires_at, created_at, revoked, revoked_at FROM guardian_tokens WHERE token = $1 LIMIT 1`
	var gt models.GuardianToken
	if err := r.db.GetContext(ctx, &gt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian token: %w", err)
	}
	return &gt, nil
}

// RevokeToken marks a guardian token as revoked.
func (r *GuardianRepository) RevokeToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE guardian_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke guardian token: %w", err)
	}
	return nil
}

// RevokeStudentTokens revokes every outstanding guardian token for a student.
// Called when the student's access code is rotated.
func (r *GuardianRepository) RevokeStudentTokens(ctx context.Context, studentID string) error {
	const query = `UPDATE guardian_tokens SET revoked = TRUE, revoked_at = $2 WHERE student_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke student guardian tokens: %w", err)
	}
	return nil
}

// DeleteExpiredTokens removes tokens that expired before the cutoff.
func (r *GuardianRepository) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM guardian_tokens WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired guardian tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
