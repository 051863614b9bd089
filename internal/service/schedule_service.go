package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type scheduleRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleSlot, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleSlot, error)
	FindConflicts(ctx context.Context, classID string, slots []models.Schedule) ([]models.ScheduleConflict, error)
	ReplaceClassGrid(ctx context.Context, classID string, slots []models.Schedule) error
}

type scheduleClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type scheduleStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ScheduleSlotRequest is one slot in a grid update.
type ScheduleSlotRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required,oneof=monday tuesday wednesday thursday friday"`
	Period    int    `json:"period" validate:"required,min=1,max=10"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

// ScheduleUpdateRequest replaces a class's weekly grid.
type ScheduleUpdateRequest struct {
	Slots []ScheduleSlotRequest `json:"slots" validate:"required,dive"`
}

// ScheduleService manages the weekly timetable grids. A grid write replaces
// the class's whole week; teacher double-bookings across classes are
// rejected with the conflicting slots listed.
type ScheduleService struct {
	repo      scheduleRepository
	classes   scheduleClassRepository
	students  scheduleStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService instance.
func NewScheduleService(repo scheduleRepository, classes scheduleClassRepository, students scheduleStudentRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{repo: repo, classes: classes, students: students, validator: validate, logger: logger}
}

// WeeklyForClass returns a class's grid grouped by weekday.
func (s *ScheduleService) WeeklyForClass(ctx context.Context, classID string) (*models.WeeklySchedule, error) {
	slots, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class schedule")
	}
	return groupByDay(classID, slots), nil
}

// WeeklyForTeacher returns every slot a teacher takes, grouped by weekday.
func (s *ScheduleService) WeeklyForTeacher(ctx context.Context, teacherID string) (*models.WeeklySchedule, error) {
	slots, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	return groupByDay("", slots), nil
}

// WeeklyForStudent resolves the student's class and returns its grid. A
// student not yet placed in a class gets an empty week rather than an error.
func (s *ScheduleService) WeeklyForStudent(ctx context.Context, studentID string) (*models.WeeklySchedule, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.ClassID == nil {
		return groupByDay("", nil), nil
	}
	return s.WeeklyForClass(ctx, *student.ClassID)
}

// ReplaceGrid swaps the class's weekly grid for the submitted slots.
func (s *ScheduleService) ReplaceGrid(ctx context.Context, classID string, req ScheduleUpdateRequest) (*models.WeeklySchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	slots := make([]models.Schedule, 0, len(req.Slots))
	occupied := make(map[string]bool)
	for _, slot := range req.Slots {
		key := fmt.Sprintf("%s#%d", slot.DayOfWeek, slot.Period)
		if occupied[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate period in grid: "+slot.DayOfWeek)
		}
		occupied[key] = true
		slots = append(slots, models.Schedule{
			ClassID:   classID,
			DayOfWeek: strings.ToLower(slot.DayOfWeek),
			Period:    slot.Period,
			SubjectID: slot.SubjectID,
			TeacherID: slot.TeacherID,
		})
	}

	conflicts, err := s.repo.FindConflicts(ctx, classID, slots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
	}
	if len(conflicts) > 0 {
		return nil, &models.ScheduleConflictError{
			Message:   "one or more teachers are already booked in another class",
			Conflicts: conflicts,
		}
	}

	if err := s.repo.ReplaceClassGrid(ctx, classID, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
	}

	return s.WeeklyForClass(ctx, classID)
}

func groupByDay(classID string, slots []models.ScheduleSlot) *models.WeeklySchedule {
	weekly := &models.WeeklySchedule{
		ClassID:  classID,
		Schedule: make(map[string][]models.ScheduleSlot, len(models.ScheduleDays)),
	}
	for _, day := range models.ScheduleDays {
		weekly.Schedule[day] = []models.ScheduleSlot{}
	}
	for _, slot := range slots {
		day := strings.ToLower(slot.DayOfWeek)
		weekly.Schedule[day] = append(weekly.Schedule[day], slot)
	}
	return weekly
}
