package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

// AttendanceRepository provides database access for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListByClassAndDate returns a class's attendance records for one day.
func (r *AttendanceRepository) ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, class_id, student_id, date, status, marked_by, created_at FROM attendance_records WHERE class_id = $1 AND date = $2 ORDER BY created_at`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, classID, date); err != nil {
		return nil, fmt.Errorf("list attendance by class and date: %w", err)
	}
	return records, nil
}

// ListByStudent returns a student's attendance history, newest first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 60
	}
	query := fmt.Sprintf(`SELECT id, class_id, student_id, date, status, marked_by, created_at FROM attendance_records WHERE student_id = $1 ORDER BY date DESC LIMIT %d`, limit)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return records, nil
}

// Exists reports whether attendance was already taken for a class on a day.
func (r *AttendanceRepository) Exists(ctx context.Context, classID string, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE class_id = $1 AND date = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, date); err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// SaveBulk replaces a class's marks for one day with the submitted set.
// Re-submitting the same day overwrites the earlier round.
func (r *AttendanceRepository) SaveBulk(ctx context.Context, classID string, date time.Time, markedBy string, entries []models.AttendanceEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE class_id = $1 AND date = $2`, classID, date); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO attendance_records (id, class_id, student_id, date, status, marked_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), classID, entry.StudentID, date, entry.Status, markedBy, now); err != nil {
			return fmt.Errorf("insert attendance record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}
