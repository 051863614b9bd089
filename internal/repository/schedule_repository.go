package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

const scheduleSlotQuery = `SELECT s.id, s.class_id, s.day_of_week, s.period, s.subject_id, s.teacher_id, s.created_at, s.updated_at, sub.name AS subject_name, t.full_name AS teacher_name FROM schedules s JOIN subjects sub ON sub.id = s.subject_id JOIN users t ON t.id = s.teacher_id`

// ScheduleRepository provides database access for weekly schedule grids.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new instance of ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByClass returns all slots of one class's weekly grid.
func (r *ScheduleRepository) ListByClass(ctx context.Context, classID string) ([]models.ScheduleSlot, error) {
	query := scheduleSlotQuery + ` WHERE s.class_id = $1 ORDER BY s.day_of_week, s.period`
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, classID); err != nil {
		return nil, fmt.Errorf("list schedules by class: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns every slot a teacher is assigned to across classes.
func (r *ScheduleRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleSlot, error) {
	query := scheduleSlotQuery + ` WHERE s.teacher_id = $1 ORDER BY s.day_of_week, s.period`
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedules by teacher: %w", err)
	}
	return slots, nil
}

// FindConflicts returns slots in other classes that double-book any of the
// requested teacher/day/period combinations.
func (r *ScheduleRepository) FindConflicts(ctx context.Context, classID string, slots []models.Schedule) ([]models.ScheduleConflict, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	var conflicts []models.ScheduleConflict
	const query = `SELECT id AS schedule_id, class_id, day_of_week, period, teacher_id FROM schedules WHERE class_id <> $1 AND teacher_id = $2 AND day_of_week = $3 AND period = $4`
	for _, slot := range slots {
		var found []models.ScheduleConflict
		if err := r.db.SelectContext(ctx, &found, query, classID, slot.TeacherID, slot.DayOfWeek, slot.Period); err != nil {
			return nil, fmt.Errorf("find schedule conflicts: %w", err)
		}
		conflicts = append(conflicts, found...)
	}
	return conflicts, nil
}

// ReplaceClassGrid atomically swaps a class's entire weekly grid for the
// provided slots.
func (r *ScheduleRepository) ReplaceClassGrid(ctx context.Context, classID string, slots []models.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class grid: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO schedules (id, class_id, day_of_week, period, subject_id, teacher_id, created_at, updated_at) VALUES (:id, :class_id, :day_of_week, :period, :subject_id, :teacher_id, :created_at, :updated_at)`
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.ClassID = classID
		slot.CreatedAt = now
		slot.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, slot); err != nil {
			return fmt.Errorf("insert schedule slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", err)
	}
	return nil
}

// FindFirstPeriodClass returns the class whose first period a teacher takes
// on the given weekday, if any. Used for attendance gating.
func (r *ScheduleRepository) FindFirstPeriodClass(ctx context.Context, teacherID, dayOfWeek string) (*models.FirstPeriodClass, error) {
	const query = `SELECT s.class_id, c.name AS class_name FROM schedules s JOIN classes c ON c.id = s.class_id WHERE s.teacher_id = $1 AND s.day_of_week = $2 AND s.period = 1 LIMIT 1`
	var fpc models.FirstPeriodClass
	if err := r.db.GetContext(ctx, &fpc, query, teacherID, dayOfWeek); err != nil {
		return nil, err
	}
	return &fpc, nil
}
