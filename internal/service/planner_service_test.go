package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type mockPlannerRepo struct {
	planners map[string]*models.Planner
	details  map[string]*models.PlannerDetail
	queue    []models.PlannerDetail
}

func newMockPlannerRepo() *mockPlannerRepo {
	return &mockPlannerRepo{planners: map[string]*models.Planner{}, details: map[string]*models.PlannerDetail{}}
}

func (m *mockPlannerRepo) FindByID(ctx context.Context, id string) (*models.Planner, error) {
	p, ok := m.planners[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *p
	return &copy, nil
}

func (m *mockPlannerRepo) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.Planner, error) {
	for _, p := range m.planners {
		if p.StudentID == studentID && p.Date.Equal(date) {
			copy := *p
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockPlannerRepo) FindDetailByID(ctx context.Context, id string) (*models.PlannerDetail, error) {
	d, ok := m.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (m *mockPlannerRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.Planner, error) {
	var out []models.Planner
	for _, p := range m.planners {
		if p.StudentID == studentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPlannerRepo) ListPendingByStudent(ctx context.Context, studentID string) ([]models.Planner, error) {
	var out []models.Planner
	for _, p := range m.planners {
		if p.StudentID == studentID && p.Status == models.PlannerPending {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPlannerRepo) ListGuardianApprovedByClass(ctx context.Context, classIDs []string) ([]models.PlannerDetail, error) {
	return m.queue, nil
}

func (m *mockPlannerRepo) Create(ctx context.Context, planner *models.Planner) error {
	if planner.ID == "" {
		planner.ID = "generated"
	}
	copy := *planner
	m.planners[planner.ID] = &copy
	return nil
}

func (m *mockPlannerRepo) UpdateContent(ctx context.Context, planner *models.Planner) (bool, error) {
	current, ok := m.planners[planner.ID]
	if !ok || !current.Status.Editable() {
		return false, nil
	}
	copy := *planner
	m.planners[planner.ID] = &copy
	return true, nil
}

func (m *mockPlannerRepo) Recall(ctx context.Context, id string) (bool, error) {
	p, ok := m.planners[id]
	if !ok || p.Status != models.PlannerPending {
		return false, nil
	}
	p.Status = models.PlannerRecalledByStudent
	return true, nil
}

func (m *mockPlannerRepo) GuardianApprove(ctx context.Context, id, signature string, approvedAt time.Time) (bool, error) {
	p, ok := m.planners[id]
	if !ok || p.Status != models.PlannerPending {
		return false, nil
	}
	p.Status = models.PlannerGuardianApproved
	p.GuardianSignature = &signature
	p.GuardianApprovedAt = &approvedAt
	return true, nil
}

func (m *mockPlannerRepo) TeacherReview(ctx context.Context, id, teacherID string, approve bool, comment *string, reviewedAt time.Time) (bool, error) {
	p, ok := m.planners[id]
	if !ok || p.Status != models.PlannerGuardianApproved {
		return false, nil
	}
	if approve {
		p.Status = models.PlannerTeacherApproved
	} else {
		p.Status = models.PlannerTeacherDeclined
	}
	p.TeacherDeclineComment = comment
	p.TeacherReviewedBy = &teacherID
	p.TeacherReviewedAt = &reviewedAt
	return true, nil
}

type mockPlannerStudents struct {
	students map[string]*models.User
}

func (m *mockPlannerStudents) FindByID(ctx context.Context, id string) (*models.User, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type mockPlannerSchedules struct {
	slots []models.ScheduleSlot
}

func (m *mockPlannerSchedules) ListByClass(ctx context.Context, classID string) ([]models.ScheduleSlot, error) {
	return m.slots, nil
}

type mockPlannerClasses struct {
	homerooms map[string][]string
}

func (m *mockPlannerClasses) ListHomeroomClassIDs(ctx context.Context, teacherID string) ([]string, error) {
	return m.homerooms[teacherID], nil
}

func newPlannerService(repo *mockPlannerRepo, students *mockPlannerStudents, classes *mockPlannerClasses) *PlannerService {
	if students == nil {
		students = &mockPlannerStudents{students: map[string]*models.User{}}
	}
	if classes == nil {
		classes = &mockPlannerClasses{homerooms: map[string][]string{}}
	}
	return NewPlannerService(repo, students, &mockPlannerSchedules{}, classes, nil, validator.New(), zap.NewNop())
}

func homeroomFixture() (*mockPlannerStudents, *mockPlannerClasses) {
	classID := "c1"
	students := &mockPlannerStudents{students: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent, ClassID: &classID, Active: true},
	}}
	classes := &mockPlannerClasses{homerooms: map[string][]string{"t1": {"c1"}}}
	return students, classes
}

func TestSaveCreatesPendingPlanner(t *testing.T) {
	repo := newMockPlannerRepo()
	svc := newPlannerService(repo, nil, nil)

	planner, err := svc.Save(context.Background(), "s1", models.PlannerContentRequest{Date: "2026-03-02", TodaysGoal: "finish chapter 4"})
	require.NoError(t, err)
	assert.Equal(t, models.PlannerPending, planner.Status)
	assert.Equal(t, "s1", planner.StudentID)
}

func TestSaveRejectedWhileUnderReview(t *testing.T) {
	repo := newMockPlannerRepo()
	date, _ := time.Parse("2006-01-02", "2026-03-02")
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Date: date, Status: models.PlannerGuardianApproved}
	svc := newPlannerService(repo, nil, nil)

	_, err := svc.Save(context.Background(), "s1", models.PlannerContentRequest{Date: "2026-03-02"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlannerLocked.Code, appErrors.FromError(err).Code)
}

func TestResubmitAfterDeclineReturnsToPending(t *testing.T) {
	repo := newMockPlannerRepo()
	date, _ := time.Parse("2006-01-02", "2026-03-02")
	comment := "add more detail"
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Date: date, Status: models.PlannerTeacherDeclined, TeacherDeclineComment: &comment}
	svc := newPlannerService(repo, nil, nil)

	planner, err := svc.Save(context.Background(), "s1", models.PlannerContentRequest{Date: "2026-03-02", SelfReflection: "revised"})
	require.NoError(t, err)
	assert.Equal(t, models.PlannerPending, planner.Status)
}

func TestRecallOnlyWhilePending(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Status: models.PlannerGuardianApproved}
	svc := newPlannerService(repo, nil, nil)

	_, err := svc.Recall(context.Background(), "s1", "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	repo.planners["p2"] = &models.Planner{ID: "p2", StudentID: "s1", Status: models.PlannerPending}
	planner, err := svc.Recall(context.Background(), "s1", "p2")
	require.NoError(t, err)
	assert.Equal(t, models.PlannerRecalledByStudent, planner.Status)
}

func TestRecallForeignPlannerForbidden(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "other", Status: models.PlannerPending}
	svc := newPlannerService(repo, nil, nil)

	_, err := svc.Recall(context.Background(), "s1", "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGuardianApproveMovesToGuardianApproved(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Status: models.PlannerPending}
	svc := newPlannerService(repo, nil, nil)

	planner, err := svc.GuardianApprove(context.Background(), "s1", "p1", models.GuardianApproveRequest{Signature: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, models.PlannerGuardianApproved, planner.Status)
	require.NotNil(t, planner.GuardianSignature)
	assert.Equal(t, "Jane Doe", *planner.GuardianSignature)
}

func TestGuardianApproveRecalledPlannerConflicts(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Status: models.PlannerRecalledByStudent}
	svc := newPlannerService(repo, nil, nil)

	_, err := svc.GuardianApprove(context.Background(), "s1", "p1", models.GuardianApproveRequest{Signature: "Jane Doe"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestTeacherDeclineRequiresComment(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Status: models.PlannerGuardianApproved}
	students, classes := homeroomFixture()
	svc := newPlannerService(repo, students, classes)

	_, err := svc.Review(context.Background(), "t1", "p1", models.TeacherReviewRequest{Approve: false, Comment: "   "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCommentRequired.Code, appErrors.FromError(err).Code)

	planner, err := svc.Review(context.Background(), "t1", "p1", models.TeacherReviewRequest{Approve: false, Comment: "show your working"})
	require.NoError(t, err)
	assert.Equal(t, models.PlannerTeacherDeclined, planner.Status)
	require.NotNil(t, planner.TeacherDeclineComment)
	assert.Equal(t, "show your working", *planner.TeacherDeclineComment)
}

func TestTeacherApproveIsTerminal(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Status: models.PlannerGuardianApproved}
	students, classes := homeroomFixture()
	svc := newPlannerService(repo, students, classes)

	planner, err := svc.Review(context.Background(), "t1", "p1", models.TeacherReviewRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.PlannerTeacherApproved, planner.Status)
	assert.True(t, planner.Status.Terminal())

	_, err = svc.Review(context.Background(), "t1", "p1", models.TeacherReviewRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestReviewOutsideHomeroomForbidden(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.planners["p1"] = &models.Planner{ID: "p1", StudentID: "s1", Status: models.PlannerGuardianApproved}
	students, _ := homeroomFixture()
	classes := &mockPlannerClasses{homerooms: map[string][]string{"t2": {"c9"}}}
	svc := newPlannerService(repo, students, classes)

	_, err := svc.Review(context.Background(), "t2", "p1", models.TeacherReviewRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDetailForGuardianScopedToStudent(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.details["p1"] = &models.PlannerDetail{Planner: models.Planner{ID: "p1", StudentID: "other"}}
	svc := newPlannerService(repo, nil, nil)

	_, err := svc.DetailForGuardian(context.Background(), "s1", "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
