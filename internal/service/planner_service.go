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

type plannerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Planner, error)
	FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.Planner, error)
	FindDetailByID(ctx context.Context, id string) (*models.PlannerDetail, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.Planner, error)
	ListPendingByStudent(ctx context.Context, studentID string) ([]models.Planner, error)
	ListGuardianApprovedByClass(ctx context.Context, classIDs []string) ([]models.PlannerDetail, error)
	Create(ctx context.Context, planner *models.Planner) error
	UpdateContent(ctx context.Context, planner *models.Planner) (bool, error)
	Recall(ctx context.Context, id string) (bool, error)
	GuardianApprove(ctx context.Context, id, signature string, approvedAt time.Time) (bool, error)
	TeacherReview(ctx context.Context, id, teacherID string, approve bool, comment *string, reviewedAt time.Time) (bool, error)
}

type plannerStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type plannerScheduleRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleSlot, error)
}

type plannerClassRepository interface {
	ListHomeroomClassIDs(ctx context.Context, teacherID string) ([]string, error)
}

type plannerMetrics interface {
	RecordPlannerTransition(status string)
}

// PlannerService drives the daily planner approval workflow. Every
// transition re-checks the current status in the database, so stale clients
// get a conflict instead of silently overwriting a newer decision.
type PlannerService struct {
	planners  plannerRepository
	students  plannerStudentRepository
	schedules plannerScheduleRepository
	classes   plannerClassRepository
	metrics   plannerMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlannerService constructs a PlannerService instance.
func NewPlannerService(planners plannerRepository, students plannerStudentRepository, schedules plannerScheduleRepository, classes plannerClassRepository, metrics plannerMetrics, validate *validator.Validate, logger *zap.Logger) *PlannerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PlannerService{planners: planners, students: students, schedules: schedules, classes: classes, metrics: metrics, validator: validate, logger: logger}
}

func (s *PlannerService) recordTransition(status models.PlannerStatus) {
	if s.metrics != nil {
		s.metrics.RecordPlannerTransition(string(status))
	}
}

// GetForDate returns the student's planner for a day. When none exists yet,
// a draft is returned with lesson plan rows seeded from that day's schedule;
// the draft is not persisted until the student saves it.
func (s *PlannerService) GetForDate(ctx context.Context, studentID string, date time.Time) (*models.Planner, error) {
	planner, err := s.planners.FindByStudentAndDate(ctx, studentID, date)
	if err == nil {
		return planner, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner")
	}

	draft := &models.Planner{
		StudentID:   studentID,
		Date:        date,
		Status:      models.PlannerPending,
		ReadingList: models.ReadingList{},
		TodoList:    models.TodoList{},
		LessonPlans: s.seedLessonPlans(ctx, studentID, date),
	}
	return draft, nil
}

// History returns the student's recent planners.
func (s *PlannerService) History(ctx context.Context, studentID string, limit int) ([]models.Planner, error) {
	planners, err := s.planners.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list planners")
	}
	return planners, nil
}

// Save creates or updates the planner for the requested date. Saving is only
// allowed while the planner is editable; a resubmission moves it back to
// Pending so the guardian sees it again.
func (s *PlannerService) Save(ctx context.Context, studentID string, req models.PlannerContentRequest) (*models.Planner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid planner payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid planner date")
	}

	existing, err := s.planners.FindByStudentAndDate(ctx, studentID, date)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner")
		}

		planner := &models.Planner{
			StudentID: studentID,
			Date:      date,
			Status:    models.PlannerPending,
		}
		applyContent(planner, req)
		if err := s.planners.Create(ctx, planner); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create planner")
		}
		s.recordTransition(models.PlannerPending)
		return planner, nil
	}

	if !existing.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrPlannerLocked, "")
	}

	applyContent(existing, req)
	existing.Status = models.PlannerPending
	ok, err := s.planners.UpdateContent(ctx, existing)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update planner")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrPlannerLocked, "")
	}
	s.recordTransition(models.PlannerPending)
	return existing, nil
}

// Recall pulls a Pending planner back before the guardian signs it.
func (s *PlannerService) Recall(ctx context.Context, studentID, plannerID string) (*models.Planner, error) {
	planner, err := s.loadOwnedPlanner(ctx, studentID, plannerID)
	if err != nil {
		return nil, err
	}

	ok, err := s.planners.Recall(ctx, planner.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recall planner")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "planner can only be recalled while pending")
	}
	s.recordTransition(models.PlannerRecalledByStudent)

	return s.planners.FindByID(ctx, planner.ID)
}

// PendingForGuardian lists planners awaiting the guardian's signature for
// the linked student.
func (s *PlannerService) PendingForGuardian(ctx context.Context, studentID string) ([]models.Planner, error) {
	planners, err := s.planners.ListPendingByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending planners")
	}
	return planners, nil
}

// DetailForGuardian returns one planner, refusing planners of other students.
func (s *PlannerService) DetailForGuardian(ctx context.Context, studentID, plannerID string) (*models.PlannerDetail, error) {
	detail, err := s.planners.FindDetailByID(ctx, plannerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "planner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner")
	}
	if detail.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "planner belongs to another student")
	}
	return detail, nil
}

// GuardianApprove signs a Pending planner on behalf of the guardian.
func (s *PlannerService) GuardianApprove(ctx context.Context, studentID, plannerID string, req models.GuardianApproveRequest) (*models.Planner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	planner, err := s.loadOwnedPlanner(ctx, studentID, plannerID)
	if err != nil {
		return nil, err
	}

	ok, err := s.planners.GuardianApprove(ctx, planner.ID, req.Signature, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve planner")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "planner is no longer pending")
	}
	s.recordTransition(models.PlannerGuardianApproved)

	return s.planners.FindByID(ctx, planner.ID)
}

// ReviewQueue lists guardian-approved planners across the teacher's homeroom
// classes.
func (s *PlannerService) ReviewQueue(ctx context.Context, teacherID string) ([]models.PlannerDetail, error) {
	classIDs, err := s.classes.ListHomeroomClassIDs(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homeroom classes")
	}
	if len(classIDs) == 0 {
		return []models.PlannerDetail{}, nil
	}

	details, err := s.planners.ListGuardianApprovedByClass(ctx, classIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list review queue")
	}
	return details, nil
}

// Review records the teacher's verdict on a guardian-approved planner.
// Declining without a comment is rejected before touching the database.
func (s *PlannerService) Review(ctx context.Context, teacherID, plannerID string, req models.TeacherReviewRequest) (*models.Planner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	var comment *string
	if !req.Approve {
		trimmed := strings.TrimSpace(req.Comment)
		if trimmed == "" {
			return nil, appErrors.Clone(appErrors.ErrCommentRequired, "")
		}
		comment = &trimmed
	}

	planner, err := s.planners.FindByID(ctx, plannerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "planner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner")
	}

	if err := s.verifyHomeroom(ctx, teacherID, planner.StudentID); err != nil {
		return nil, err
	}

	ok, err := s.planners.TeacherReview(ctx, planner.ID, teacherID, req.Approve, comment, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review planner")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "planner is not awaiting teacher review")
	}
	if req.Approve {
		s.recordTransition(models.PlannerTeacherApproved)
	} else {
		s.recordTransition(models.PlannerTeacherDeclined)
	}

	return s.planners.FindByID(ctx, planner.ID)
}

// Detail returns a planner with student info for teacher screens.
func (s *PlannerService) Detail(ctx context.Context, teacherID, plannerID string) (*models.PlannerDetail, error) {
	detail, err := s.planners.FindDetailByID(ctx, plannerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "planner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner")
	}
	if err := s.verifyHomeroom(ctx, teacherID, detail.StudentID); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *PlannerService) loadOwnedPlanner(ctx context.Context, studentID, plannerID string) (*models.Planner, error) {
	planner, err := s.planners.FindByID(ctx, plannerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "planner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner")
	}
	if planner.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "planner belongs to another student")
	}
	return planner, nil
}

func (s *PlannerService) verifyHomeroom(ctx context.Context, teacherID, studentID string) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.ClassID == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "student has no class assignment")
	}
	classIDs, err := s.classes.ListHomeroomClassIDs(ctx, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homeroom classes")
	}
	for _, id := range classIDs {
		if id == *student.ClassID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "planner is outside your homeroom classes")
}

func (s *PlannerService) seedLessonPlans(ctx context.Context, studentID string, date time.Time) models.LessonPlans {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil || student.ClassID == nil {
		return models.LessonPlans{}
	}
	slots, err := s.schedules.ListByClass(ctx, *student.ClassID)
	if err != nil {
		s.logger.Warn("failed to seed lesson plans from schedule", zap.Error(err))
		return models.LessonPlans{}
	}

	day := strings.ToLower(date.Weekday().String())
	seen := make(map[string]bool)
	plans := models.LessonPlans{}
	for _, slot := range slots {
		if slot.DayOfWeek != day || seen[slot.SubjectName] {
			continue
		}
		seen[slot.SubjectName] = true
		plans = append(plans, models.LessonPlanEntry{SubjectName: slot.SubjectName})
	}
	return plans
}

func applyContent(planner *models.Planner, req models.PlannerContentRequest) {
	planner.Weather = req.Weather
	planner.TodaysGoal = req.TodaysGoal
	planner.StudyGoal = req.StudyGoal
	planner.TotalStudyTime = req.TotalStudyTime
	planner.BreakTime = req.BreakTime
	planner.SleepHours = req.SleepHours
	planner.ReadingList = req.ReadingList
	planner.TodoList = req.TodoList
	planner.LessonPlans = req.LessonPlans
	planner.AssignmentsExams = req.AssignmentsExams
	planner.SelfReflection = req.SelfReflection
	planner.EvaluationScale = req.EvaluationScale
	if planner.ReadingList == nil {
		planner.ReadingList = models.ReadingList{}
	}
	if planner.TodoList == nil {
		planner.TodoList = models.TodoList{}
	}
	if planner.LessonPlans == nil {
		planner.LessonPlans = models.LessonPlans{}
	}
}
