package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

type mockScheduleRepo struct {
	slots     map[string][]models.ScheduleSlot
	conflicts []models.ScheduleConflict
	replaced  []models.Schedule
}

func (m *mockScheduleRepo) ListByClass(ctx context.Context, classID string) ([]models.ScheduleSlot, error) {
	return m.slots[classID], nil
}

func (m *mockScheduleRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleSlot, error) {
	return m.slots[teacherID], nil
}

func (m *mockScheduleRepo) FindConflicts(ctx context.Context, classID string, slots []models.Schedule) ([]models.ScheduleConflict, error) {
	return m.conflicts, nil
}

func (m *mockScheduleRepo) ReplaceClassGrid(ctx context.Context, classID string, slots []models.Schedule) error {
	m.replaced = slots
	converted := make([]models.ScheduleSlot, 0, len(slots))
	for _, s := range slots {
		converted = append(converted, models.ScheduleSlot{Schedule: s})
	}
	m.slots[classID] = converted
	return nil
}

type mockScheduleClasses struct{}

func (m *mockScheduleClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	return &models.Class{ID: id, Name: "10-A"}, nil
}

type mockScheduleStudents struct {
	classID *string
}

func (m *mockScheduleStudents) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleStudent, ClassID: m.classID}, nil
}

func TestReplaceGridSavesSlots(t *testing.T) {
	repo := &mockScheduleRepo{slots: map[string][]models.ScheduleSlot{}}
	svc := NewScheduleService(repo, &mockScheduleClasses{}, &mockScheduleStudents{}, validator.New(), zap.NewNop())

	weekly, err := svc.ReplaceGrid(context.Background(), "c1", ScheduleUpdateRequest{
		Slots: []ScheduleSlotRequest{
			{DayOfWeek: "monday", Period: 1, SubjectID: "sub1", TeacherID: "t1"},
			{DayOfWeek: "monday", Period: 2, SubjectID: "sub2", TeacherID: "t2"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, repo.replaced, 2)
	assert.Len(t, weekly.Schedule["monday"], 2)
	assert.Empty(t, weekly.Schedule["friday"])
}

func TestReplaceGridRejectsTeacherDoubleBooking(t *testing.T) {
	repo := &mockScheduleRepo{
		slots: map[string][]models.ScheduleSlot{},
		conflicts: []models.ScheduleConflict{
			{ScheduleID: "x", ClassID: "c2", DayOfWeek: "monday", Period: 1, TeacherID: "t1"},
		},
	}
	svc := NewScheduleService(repo, &mockScheduleClasses{}, &mockScheduleStudents{}, validator.New(), zap.NewNop())

	_, err := svc.ReplaceGrid(context.Background(), "c1", ScheduleUpdateRequest{
		Slots: []ScheduleSlotRequest{{DayOfWeek: "monday", Period: 1, SubjectID: "sub1", TeacherID: "t1"}},
	})
	require.Error(t, err)

	var conflictErr *models.ScheduleConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Len(t, conflictErr.Conflicts, 1)
	assert.Nil(t, repo.replaced)
}

func TestWeeklyForStudentWithoutClassIsEmpty(t *testing.T) {
	repo := &mockScheduleRepo{slots: map[string][]models.ScheduleSlot{}}
	svc := NewScheduleService(repo, &mockScheduleClasses{}, &mockScheduleStudents{}, validator.New(), zap.NewNop())

	weekly, err := svc.WeeklyForStudent(context.Background(), "s1")
	require.NoError(t, err)
	for _, day := range weekly.Schedule {
		assert.Empty(t, day)
	}
}

func TestWeeklyForStudentResolvesClassGrid(t *testing.T) {
	classID := "c1"
	repo := &mockScheduleRepo{slots: map[string][]models.ScheduleSlot{
		"c1": {{Schedule: models.Schedule{ClassID: "c1", DayOfWeek: "tuesday", Period: 3}}},
	}}
	svc := NewScheduleService(repo, &mockScheduleClasses{}, &mockScheduleStudents{classID: &classID}, validator.New(), zap.NewNop())

	weekly, err := svc.WeeklyForStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, weekly.Schedule["tuesday"], 1)
}

func TestReplaceGridRejectsDuplicatePeriod(t *testing.T) {
	repo := &mockScheduleRepo{slots: map[string][]models.ScheduleSlot{}}
	svc := NewScheduleService(repo, &mockScheduleClasses{}, &mockScheduleStudents{}, validator.New(), zap.NewNop())

	_, err := svc.ReplaceGrid(context.Background(), "c1", ScheduleUpdateRequest{
		Slots: []ScheduleSlotRequest{
			{DayOfWeek: "monday", Period: 1, SubjectID: "sub1", TeacherID: "t1"},
			{DayOfWeek: "monday", Period: 1, SubjectID: "sub2", TeacherID: "t2"},
		},
	})
	require.Error(t, err)
}
