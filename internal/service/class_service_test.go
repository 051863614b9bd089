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

type mockClassRepo struct {
	classes       map[string]*models.Class
	scheduleCount int
	deleted       []string
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	return nil, 0, nil
}

func (m *mockClassRepo) ListStudents(ctx context.Context, classID string) ([]models.User, error) {
	return nil, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	return nil
}

func (m *mockClassRepo) CountSchedules(ctx context.Context, id string) (int, error) {
	return m.scheduleCount, nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockClassTeachers struct{}

func (m *mockClassTeachers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleTeacher}, nil
}

func TestDeleteClassBlockedByScheduleSlots(t *testing.T) {
	repo := &mockClassRepo{
		classes:       map[string]*models.Class{"c1": {ID: "c1", Name: "10-A"}},
		scheduleCount: 3,
	}
	svc := NewClassService(repo, &mockClassTeachers{}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "c1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestDeleteClassWithoutScheduleSlots(t *testing.T) {
	repo := &mockClassRepo{
		classes: map[string]*models.Class{"c1": {ID: "c1", Name: "10-A"}},
	}
	svc := NewClassService(repo, &mockClassTeachers{}, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	assert.Equal(t, []string{"c1"}, repo.deleted)
}

func TestDeleteMissingClassIsNotFound(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{}}
	svc := NewClassService(repo, &mockClassTeachers{}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
