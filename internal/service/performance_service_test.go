package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type mockPerformanceRepo struct {
	entries []models.PerformanceEntry
	results []models.ExamResult
}

func (m *mockPerformanceRepo) Create(ctx context.Context, entry *models.PerformanceEntry) error {
	entry.ID = "p-new"
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockPerformanceRepo) ListByTeacher(ctx context.Context, teacherID string, limit int) ([]models.PerformanceDetail, error) {
	return nil, nil
}

func (m *mockPerformanceRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.PerformanceDetail, error) {
	details := make([]models.PerformanceDetail, 0, len(m.entries))
	for _, e := range m.entries {
		if e.StudentID == studentID {
			details = append(details, models.PerformanceDetail{PerformanceEntry: e})
		}
	}
	return details, nil
}

func (m *mockPerformanceRepo) CreateExamResult(ctx context.Context, result *models.ExamResult) error {
	result.ID = "r-new"
	m.results = append(m.results, *result)
	return nil
}

func (m *mockPerformanceRepo) ListExamResults(ctx context.Context, studentID string) ([]models.ExamResult, error) {
	return m.results, nil
}

type mockPerformanceStudents struct {
	users map[string]*models.User
}

func (m *mockPerformanceStudents) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func performanceTestStudents() *mockPerformanceStudents {
	classID := "c1"
	return &mockPerformanceStudents{users: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent, ClassID: &classID},
		"t1": {ID: "t1", Role: models.RoleTeacher},
	}}
}

func TestSubmitPerformanceRecordsEntry(t *testing.T) {
	repo := &mockPerformanceRepo{}
	svc := NewPerformanceService(repo, performanceTestStudents(), validator.New(), zap.NewNop())

	entry, err := svc.Submit(context.Background(), "t1", PerformanceRequest{
		StudentID: "s1",
		ClassID:   "c1",
		SubjectID: "sub1",
		Rating:    models.PerformanceGood,
		Comment:   "solid participation",
		Date:      "2026-08-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", entry.TeacherID)
	assert.Equal(t, models.PerformanceGood, entry.Rating)
	assert.Len(t, repo.entries, 1)

	history, err := svc.StudentHistory(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSubmitPerformanceRejectsUnknownRating(t *testing.T) {
	svc := NewPerformanceService(&mockPerformanceRepo{}, performanceTestStudents(), validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "t1", PerformanceRequest{
		StudentID: "s1",
		ClassID:   "c1",
		SubjectID: "sub1",
		Rating:    "Excellent",
		Date:      "2026-08-31",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitPerformanceRejectsStudentOutsideClass(t *testing.T) {
	repo := &mockPerformanceRepo{}
	svc := NewPerformanceService(repo, performanceTestStudents(), validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "t1", PerformanceRequest{
		StudentID: "s1",
		ClassID:   "c2",
		SubjectID: "sub1",
		Rating:    models.PerformanceAverage,
		Date:      "2026-08-31",
	})
	require.Error(t, err)
	assert.Empty(t, repo.entries)
}

func TestSubmitPerformanceRejectsNonStudentTarget(t *testing.T) {
	svc := NewPerformanceService(&mockPerformanceRepo{}, performanceTestStudents(), validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "t1", PerformanceRequest{
		StudentID: "t1",
		ClassID:   "c1",
		SubjectID: "sub1",
		Rating:    models.PerformanceGood,
		Date:      "2026-08-31",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordResultAndStudentView(t *testing.T) {
	repo := &mockPerformanceRepo{}
	svc := NewPerformanceService(repo, performanceTestStudents(), validator.New(), zap.NewNop())

	result, err := svc.RecordResult(context.Background(), ExamResultRequest{
		StudentID: "s1",
		ExamType:  "Mid Term",
		Results: []models.ExamSubjectResult{
			{SubjectName: "Mathematics", Marks: 86, Grade: "A", Remarks: "strong"},
			{SubjectName: "English", Marks: 71, Grade: "B"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mid Term", result.ExamType)

	results, err := svc.Results(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Results, 2)
}

func TestRecordResultRequiresSubjectLines(t *testing.T) {
	svc := NewPerformanceService(&mockPerformanceRepo{}, performanceTestStudents(), validator.New(), zap.NewNop())

	_, err := svc.RecordResult(context.Background(), ExamResultRequest{
		StudentID: "s1",
		ExamType:  "Mid Term",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
