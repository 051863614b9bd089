package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

// DashboardRepository aggregates counters for the admin landing page.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new instance of DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats computes the headline counters in a single round trip.
func (r *DashboardRepository) Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	const query = `SELECT (SELECT COUNT(*) FROM users WHERE role = 'Student' AND active = TRUE) AS total_students, (SELECT COUNT(*) FROM users WHERE role = 'Teacher' AND active = TRUE) AS total_teachers, (SELECT COUNT(*) FROM classes) AS total_classes, (SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'Revenue' AND date_trunc('month', date) = date_trunc('month', $1::timestamptz)) AS monthly_revenue`
	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query, now); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}
