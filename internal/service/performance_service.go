package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type performanceRepository interface {
	Create(ctx context.Context, entry *models.PerformanceEntry) error
	ListByTeacher(ctx context.Context, teacherID string, limit int) ([]models.PerformanceDetail, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.PerformanceDetail, error)
	CreateExamResult(ctx context.Context, result *models.ExamResult) error
	ListExamResults(ctx context.Context, studentID string) ([]models.ExamResult, error)
}

type performanceStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// PerformanceRequest records one day verdict on one student.
type PerformanceRequest struct {
	StudentID string                   `json:"student_id" validate:"required"`
	ClassID   string                   `json:"class_id" validate:"required"`
	SubjectID string                   `json:"subject_id" validate:"required"`
	Rating    models.PerformanceRating `json:"rating" validate:"required"`
	Comment   string                   `json:"comment" validate:"max=500"`
	Date      string                   `json:"date" validate:"required,datetime=2006-01-02"`
}

// ExamResultRequest files a student's report for one exam round.
type ExamResultRequest struct {
	StudentID string                     `json:"student_id" validate:"required"`
	ExamType  string                     `json:"exam_type" validate:"required,min=2,max=100"`
	Results   []models.ExamSubjectResult `json:"results" validate:"required,min=1,dive"`
}

// PerformanceService manages daily performance ratings and exam results.
// Teachers rate, students and guardians read.
type PerformanceService struct {
	repo      performanceRepository
	students  performanceStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPerformanceService constructs a PerformanceService instance.
func NewPerformanceService(repo performanceRepository, students performanceStudentRepository, validate *validator.Validate, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PerformanceService{repo: repo, students: students, validator: validate, logger: logger}
}

// Submit records a teacher's rating of a student for one day and subject.
func (s *PerformanceService) Submit(ctx context.Context, teacherID string, req PerformanceRequest) (*models.PerformanceEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid performance payload")
	}
	if !req.Rating.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rating must be Good, Average or Needs Improvement")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid performance date")
	}

	student, err := s.verifyStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.ClassID == nil || *student.ClassID != req.ClassID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not in this class")
	}

	entry := &models.PerformanceEntry{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: teacherID,
		Date:      date,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save performance entry")
	}

	s.logger.Info("performance entry recorded",
		zap.String("teacher_id", teacherID),
		zap.String("student_id", req.StudentID),
		zap.String("rating", string(req.Rating)))
	return entry, nil
}

// TeacherHistory returns the ratings a teacher has submitted.
func (s *PerformanceService) TeacherHistory(ctx context.Context, teacherID string, limit int) ([]models.PerformanceDetail, error) {
	entries, err := s.repo.ListByTeacher(ctx, teacherID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance history")
	}
	return entries, nil
}

// StudentHistory returns the ratings a student has received.
func (s *PerformanceService) StudentHistory(ctx context.Context, studentID string, limit int) ([]models.PerformanceDetail, error) {
	entries, err := s.repo.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance history")
	}
	return entries, nil
}

// RecordResult files an exam report for a student.
func (s *PerformanceService) RecordResult(ctx context.Context, req ExamResultRequest) (*models.ExamResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam result payload")
	}
	if _, err := s.verifyStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	result := &models.ExamResult{
		StudentID: req.StudentID,
		ExamType:  req.ExamType,
		Results:   req.Results,
	}
	if err := s.repo.CreateExamResult(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save exam result")
	}
	return result, nil
}

// Results returns a student's exam reports.
func (s *PerformanceService) Results(ctx context.Context, studentID string) ([]models.ExamResult, error) {
	results, err := s.repo.ListExamResults(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam results")
	}
	return results, nil
}

func (s *PerformanceService) verifyStudent(ctx context.Context, id string) (*models.User, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target user is not a student")
	}
	return student, nil
}
