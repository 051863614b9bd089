package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type attendanceRepository interface {
	ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error)
	SaveBulk(ctx context.Context, classID string, date time.Time, markedBy string, entries []models.AttendanceEntry) error
}

type attendanceScheduleRepository interface {
	FindFirstPeriodClass(ctx context.Context, teacherID, dayOfWeek string) (*models.FirstPeriodClass, error)
}

type attendanceClassRepository interface {
	ListStudents(ctx context.Context, classID string) ([]models.User, error)
}

// AttendanceSubmitRequest records a day's marks for a class.
type AttendanceSubmitRequest struct {
	ClassID string                   `json:"class_id" validate:"required"`
	Date    string                   `json:"date" validate:"required,datetime=2006-01-02"`
	Entries []models.AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceService manages daily attendance. Only the teacher of a class's
// first period may take attendance for it.
type AttendanceService struct {
	repo      attendanceRepository
	schedules attendanceScheduleRepository
	classes   attendanceClassRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, schedules attendanceScheduleRepository, classes attendanceClassRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, schedules: schedules, classes: classes, validator: validate, logger: logger}
}

// TodayClass tells a teacher which class they open on the given day, if any.
func (s *AttendanceService) TodayClass(ctx context.Context, teacherID string, date time.Time) (*models.FirstPeriodClass, error) {
	day := strings.ToLower(date.Weekday().String())
	fpc, err := s.schedules.FindFirstPeriodClass(ctx, teacherID, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no first period class today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find first period class")
	}
	return fpc, nil
}

// Sheet returns the roster plus any existing marks for a class and day.
func (s *AttendanceService) Sheet(ctx context.Context, classID string, date time.Time) ([]models.User, []models.AttendanceRecord, error) {
	students, err := s.classes.ListStudents(ctx, classID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	records, err := s.repo.ListByClassAndDate(ctx, classID, date)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return students, records, nil
}

// Submit saves a day's marks. The teacher must own the class's first period
// on that weekday; resubmitting overwrites the earlier round.
func (s *AttendanceService) Submit(ctx context.Context, teacherID string, req AttendanceSubmitRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid attendance date")
	}

	day := strings.ToLower(date.Weekday().String())
	fpc, err := s.schedules.FindFirstPeriodClass(ctx, teacherID, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "you do not take this class's first period")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify first period")
	}
	if fpc.ClassID != req.ClassID {
		return appErrors.Clone(appErrors.ErrForbidden, "you do not take this class's first period")
	}

	if err := s.repo.SaveBulk(ctx, req.ClassID, date, teacherID, req.Entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return nil
}

// StudentHistory returns a student's recent attendance marks.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error) {
	records, err := s.repo.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return records, nil
}
