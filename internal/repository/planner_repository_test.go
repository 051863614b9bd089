package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

func plannerRows(now time.Time, status models.PlannerStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "date", "status", "weather", "todays_goal", "study_goal", "total_study_time", "break_time", "sleep_hours", "reading_list", "todo_list", "lesson_plans", "assignments_exams", "self_reflection", "evaluation_scale", "guardian_signature", "guardian_approved_at", "teacher_decline_comment", "teacher_reviewed_by", "teacher_reviewed_at", "created_at", "updated_at"}).
		AddRow("p1", "s1", now, string(status), "sunny", "goal", "study", "2h", "30m", "8h", []byte(`[]`), []byte(`[]`), []byte(`[]`), "", "", 3, nil, nil, nil, nil, nil, now, now)
}

func TestFindPlannerByStudentAndDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+plannerColumns+" FROM planners WHERE student_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("s1", now).
		WillReturnRows(plannerRows(now, models.PlannerPending))

	planner, err := repo.FindByStudentAndDate(context.Background(), "s1", now)
	require.NoError(t, err)
	assert.Equal(t, models.PlannerPending, planner.Status)
	assert.True(t, planner.Status.Editable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecallOnlyFromPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE planners SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("p1", string(models.PlannerRecalledByStudent), sqlmock.AnyArg(), string(models.PlannerPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Recall(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianApproveSwapsFromPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	approvedAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE planners SET status = $2, guardian_signature = $3, guardian_approved_at = $4, updated_at = $4 WHERE id = $1 AND status = $5")).
		WithArgs("p1", string(models.PlannerGuardianApproved), "Guardian Name", approvedAt, string(models.PlannerPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.GuardianApprove(context.Background(), "p1", "Guardian Name", approvedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherReviewRequiresGuardianApproved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	reviewedAt := time.Now()
	comment := "please add study details"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE planners SET status = $2, teacher_decline_comment = $3, teacher_reviewed_by = $4, teacher_reviewed_at = $5, updated_at = $5 WHERE id = $1 AND status = $6")).
		WithArgs("p1", string(models.PlannerTeacherDeclined), &comment, "t1", reviewedAt, string(models.PlannerGuardianApproved)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TeacherReview(context.Background(), "p1", "t1", false, &comment, reviewedAt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContentBlockedWhenLocked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	mock.ExpectExec("UPDATE planners SET status =").
		WillReturnResult(sqlmock.NewResult(0, 0))

	planner := &models.Planner{ID: "p1", Status: models.PlannerPending}
	ok, err := repo.UpdateContent(context.Background(), planner)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
