package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

// PerformanceRepository provides database access for daily performance
// ratings and exam results.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository creates a new instance of PerformanceRepository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

const performanceDetailColumns = `
	p.id, p.student_id, p.class_id, p.subject_id, p.teacher_id, p.date, p.rating, p.comment, p.created_at,
	st.full_name AS student_name,
	c.name AS class_name,
	sub.name AS subject_name,
	t.full_name AS teacher_name`

const performanceDetailJoins = `
	FROM performance_entries p
	JOIN users st ON st.id = p.student_id
	JOIN classes c ON c.id = p.class_id
	JOIN subjects sub ON sub.id = p.subject_id
	JOIN users t ON t.id = p.teacher_id`

// Create inserts a new performance entry.
func (r *PerformanceRepository) Create(ctx context.Context, entry *models.PerformanceEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO performance_entries (id, student_id, class_id, subject_id, teacher_id, date, rating, comment, created_at)
		VALUES (:id, :student_id, :class_id, :subject_id, :teacher_id, :date, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert performance entry: %w", err)
	}
	return nil
}

// ListByTeacher returns a teacher's submitted ratings, newest first.
func (r *PerformanceRepository) ListByTeacher(ctx context.Context, teacherID string, limit int) ([]models.PerformanceDetail, error) {
	if limit <= 0 || limit > 200 {
		limit = 60
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE p.teacher_id = $1 ORDER BY p.date DESC, p.created_at DESC LIMIT %d`,
		performanceDetailColumns, performanceDetailJoins, limit)
	var entries []models.PerformanceDetail
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list performance by teacher: %w", err)
	}
	return entries, nil
}

// ListByStudent returns the ratings given to a student, newest first.
func (r *PerformanceRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.PerformanceDetail, error) {
	if limit <= 0 || limit > 200 {
		limit = 60
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE p.student_id = $1 ORDER BY p.date DESC, p.created_at DESC LIMIT %d`,
		performanceDetailColumns, performanceDetailJoins, limit)
	var entries []models.PerformanceDetail
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list performance by student: %w", err)
	}
	return entries, nil
}

// CreateExamResult inserts a student's report for one exam round.
func (r *PerformanceRepository) CreateExamResult(ctx context.Context, result *models.ExamResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO exam_results (id, student_id, exam_type, results, created_at)
		VALUES (:id, :student_id, :exam_type, :results, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("insert exam result: %w", err)
	}
	return nil
}

// ListExamResults returns a student's exam reports, newest first.
func (r *PerformanceRepository) ListExamResults(ctx context.Context, studentID string) ([]models.ExamResult, error) {
	const query = `SELECT id, student_id, exam_type, results, created_at FROM exam_results WHERE student_id = $1 ORDER BY created_at DESC`
	var results []models.ExamResult
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	return results, nil
}
