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

const plannerColumns = `id, student_id, date, status, weather, todays_goal, study_goal, total_study_time, break_time, sleep_hours, reading_list, todo_list, lesson_plans, assignments_exams, self_reflection, evaluation_scale, guardian_signature, guardian_approved_at, teacher_decline_comment, teacher_reviewed_by, teacher_reviewed_at, created_at, updated_at`

// PlannerRepository provides database access for daily planners.
//
// Status transitions use compare-and-swap updates keyed on the expected
// current status, so two actors racing on the same planner cannot both win.
type PlannerRepository struct {
	db *sqlx.DB
}

// NewPlannerRepository creates a new instance of PlannerRepository.
func NewPlannerRepository(db *sqlx.DB) *PlannerRepository {
	return &PlannerRepository{db: db}
}

// FindByID returns a planner by identifier.
func (r *PlannerRepository) FindByID(ctx context.Context, id string) (*models.Planner, error) {
	query := fmt.Sprintf(`SELECT %s FROM planners WHERE id = $1 LIMIT 1`, plannerColumns)
	var planner models.Planner
	if err := r.db.GetContext(ctx, &planner, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find planner by id: %w", err)
	}
	return &planner, nil
}

// FindByStudentAndDate returns the planner a student wrote for a given day.
func (r *PlannerRepository) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.Planner, error) {
	query := fmt.Sprintf(`SELECT %s FROM planners WHERE student_id = $1 AND date = $2 LIMIT 1`, plannerColumns)
	var planner models.Planner
	if err := r.db.GetContext(ctx, &planner, query, studentID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find planner by student and date: %w", err)
	}
	return &planner, nil
}

// FindDetailByID returns a planner joined with the owning student.
func (r *PlannerRepository) FindDetailByID(ctx context.Context, id string) (*models.PlannerDetail, error) {
	const query = `SELECT p.id, p.student_id, p.date, p.status, p.weather, p.todays_goal, p.study_goal, p.total_study_time, p.break_time, p.sleep_hours, p.reading_list, p.todo_list, p.lesson_plans, p.assignments_exams, p.self_reflection, p.evaluation_scale, p.guardian_signature, p.guardian_approved_at, p.teacher_decline_comment, p.teacher_reviewed_by, p.teacher_reviewed_at, p.created_at, p.updated_at, u.full_name AS student_name, u.index_number AS student_index FROM planners p JOIN users u ON u.id = p.student_id WHERE p.id = $1 LIMIT 1`
	var detail models.PlannerDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find planner detail: %w", err)
	}
	return &detail, nil
}

// ListByStudent returns a student's planners newest first.
func (r *PlannerRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.Planner, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	query := fmt.Sprintf(`SELECT %s FROM planners WHERE student_id = $1 ORDER BY date DESC LIMIT %d`, plannerColumns, limit)
	var planners []models.Planner
	if err := r.db.SelectContext(ctx, &planners, query, studentID); err != nil {
		return nil, fmt.Errorf("list planners by student: %w", err)
	}
	return planners, nil
}

// ListPendingByStudent returns planners awaiting the guardian's signature.
func (r *PlannerRepository) ListPendingByStudent(ctx context.Context, studentID string) ([]models.Planner, error) {
	query := fmt.Sprintf(`SELECT %s FROM planners WHERE student_id = $1 AND status = $2 ORDER BY date DESC`, plannerColumns)
	var planners []models.Planner
	if err := r.db.SelectContext(ctx, &planners, query, studentID, models.PlannerPending); err != nil {
		return nil, fmt.Errorf("list pending planners: %w", err)
	}
	return planners, nil
}

// ListGuardianApprovedByClass returns planners ready for teacher review across
// the teacher's homeroom classes.
func (r *PlannerRepository) ListGuardianApprovedByClass(ctx context.Context, classIDs []string) ([]models.PlannerDetail, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT p.id, p.student_id, p.date, p.status, p.weather, p.todays_goal, p.study_goal, p.total_study_time, p.break_time, p.sleep_hours, p.reading_list, p.todo_list, p.lesson_plans, p.assignments_exams, p.self_reflection, p.evaluation_scale, p.guardian_signature, p.guardian_approved_at, p.teacher_decline_comment, p.teacher_reviewed_by, p.teacher_reviewed_at, p.created_at, p.updated_at, u.full_name AS student_name, u.index_number AS student_index FROM planners p JOIN users u ON u.id = p.student_id WHERE p.status = ? AND u.class_id IN (?) ORDER BY p.date DESC`, models.PlannerGuardianApproved, classIDs)
	if err != nil {
		return nil, fmt.Errorf("build guardian approved query: %w", err)
	}
	query = r.db.Rebind(query)

	var details []models.PlannerDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list guardian approved planners: %w", err)
	}
	return details, nil
}

// Create inserts a new planner.
func (r *PlannerRepository) Create(ctx context.Context, planner *models.Planner) error {
	if planner.ID == "" {
		planner.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	planner.CreatedAt = now
	planner.UpdatedAt = now
	if planner.Status == "" {
		planner.Status = models.PlannerPending
	}

	const query = `INSERT INTO planners (id, student_id, date, status, weather, todays_goal, study_goal, total_study_time, break_time, sleep_hours, reading_list, todo_list, lesson_plans, assignments_exams, self_reflection, evaluation_scale, created_at, updated_at) VALUES (:id, :student_id, :date, :status, :weather, :todays_goal, :study_goal, :total_study_time, :break_time, :sleep_hours, :reading_list, :todo_list, :lesson_plans, :assignments_exams, :self_reflection, :evaluation_scale, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, planner); err != nil {
		return fmt.Errorf("create planner: %w", err)
	}
	return nil
}

// UpdateContent rewrites the student-authored fields while the planner is in
// an editable state. Resubmitting from RecalledByStudent or TeacherDeclined
// moves the planner back to Pending.
func (r *PlannerRepository) UpdateContent(ctx context.Context, planner *models.Planner) (bool, error) {
	planner.UpdatedAt = time.Now().UTC()
	const query = `UPDATE planners SET status = :status, weather = :weather, todays_goal = :todays_goal, study_goal = :study_goal, total_study_time = :total_study_time, break_time = :break_time, sleep_hours = :sleep_hours, reading_list = :reading_list, todo_list = :todo_list, lesson_plans = :lesson_plans, assignments_exams = :assignments_exams, self_reflection = :self_reflection, evaluation_scale = :evaluation_scale, updated_at = :updated_at WHERE id = :id AND status IN ('Pending', 'RecalledByStudent', 'TeacherDeclined')`
	res, err := r.db.NamedExecContext(ctx, query, planner)
	if err != nil {
		return false, fmt.Errorf("update planner content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update planner content: %w", err)
	}
	return n > 0, nil
}

// Recall moves a planner from Pending back to RecalledByStudent. Returns
// false when the planner was no longer Pending.
func (r *PlannerRepository) Recall(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE planners SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.PlannerRecalledByStudent, time.Now().UTC(), models.PlannerPending)
	if err != nil {
		return false, fmt.Errorf("recall planner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recall planner: %w", err)
	}
	return n > 0, nil
}

// GuardianApprove records the guardian's signature on a Pending planner.
func (r *PlannerRepository) GuardianApprove(ctx context.Context, id, signature string, approvedAt time.Time) (bool, error) {
	const query = `UPDATE planners SET status = $2, guardian_signature = $3, guardian_approved_at = $4, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.PlannerGuardianApproved, signature, approvedAt, models.PlannerPending)
	if err != nil {
		return false, fmt.Errorf("guardian approve planner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("guardian approve planner: %w", err)
	}
	return n > 0, nil
}

// TeacherReview records the teacher's verdict on a GuardianApproved planner.
// Approving clears any previous decline comment; declining stores one.
func (r *PlannerRepository) TeacherReview(ctx context.Context, id, teacherID string, approve bool, comment *string, reviewedAt time.Time) (bool, error) {
	status := models.PlannerTeacherApproved
	if !approve {
		status = models.PlannerTeacherDeclined
	}
	const query = `UPDATE planners SET status = $2, teacher_decline_comment = $3, teacher_reviewed_by = $4, teacher_reviewed_at = $5, updated_at = $5 WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, status, comment, teacherID, reviewedAt, models.PlannerGuardianApproved)
	if err != nil {
		return false, fmt.Errorf("teacher review planner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("teacher review planner: %w", err)
	}
	return n > 0, nil
}
