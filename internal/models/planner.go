package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlannerStatus models the approval workflow of a daily planner: the student
// submits, the guardian countersigns, the teacher gives the final verdict.
type PlannerStatus string

const (
	PlannerPending           PlannerStatus = "Pending"
	PlannerGuardianApproved  PlannerStatus = "GuardianApproved"
	PlannerTeacherApproved   PlannerStatus = "TeacherApproved"
	PlannerTeacherDeclined   PlannerStatus = "TeacherDeclined"
	PlannerRecalledByStudent PlannerStatus = "RecalledByStudent"
)

// Editable reports whether the owning student may still modify content.
// Once a guardian has approved, the planner is read-only to the student
// until a teacher declines it.
func (s PlannerStatus) Editable() bool {
	switch s {
	case PlannerPending, PlannerRecalledByStudent, PlannerTeacherDeclined:
		return true
	default:
		return false
	}
}

// Terminal reports whether the workflow is finished for this round.
func (s PlannerStatus) Terminal() bool {
	return s == PlannerTeacherApproved
}

// ReadingEntry is a single row in the student's reading list.
type ReadingEntry struct {
	Time  string `json:"time"`
	Topic string `json:"topic"`
}

// TodoEntry is a single row in the student's todo list.
type TodoEntry struct {
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// LessonPlanEntry tracks per-subject homework and lesson notes, seeded from
// the student's schedule for the day with optional custom rows.
type LessonPlanEntry struct {
	SubjectName  string `json:"subject_name"`
	IsCustom     bool   `json:"is_custom"`
	NotStudied   bool   `json:"not_studied"`
	Homework     string `json:"homework"`
	TodaysLesson string `json:"todays_lesson"`
}

// ReadingList, TodoList and LessonPlans are stored as JSONB columns.
type (
	ReadingList []ReadingEntry
	TodoList    []TodoEntry
	LessonPlans []LessonPlanEntry
)

func (l ReadingList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *ReadingList) Scan(src interface{}) error  { return jsonScan(src, l) }

func (l TodoList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *TodoList) Scan(src interface{}) error  { return jsonScan(src, l) }

func (l LessonPlans) Value() (driver.Value, error) { return jsonValue(l) }
func (l *LessonPlans) Scan(src interface{}) error  { return jsonScan(src, l) }

func jsonValue(v interface{}) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb column: %w", err)
	}
	return raw, nil
}

func jsonScan(src, dest interface{}) error {
	if src == nil {
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("jsonb column: expected []byte, got %T", src)
	}
	return json.Unmarshal(raw, dest)
}

// Planner is a per-day self-report authored by one student. Rows are never
// hard-deleted; the workflow only moves the status. Guardian signature and
// teacher comment survive a resubmission as history, but gating decisions
// look at status alone.
type Planner struct {
	ID                    string        `db:"id" json:"id"`
	StudentID             string        `db:"student_id" json:"student_id"`
	Date                  time.Time     `db:"date" json:"date"`
	Status                PlannerStatus `db:"status" json:"status"`
	Weather               string        `db:"weather" json:"weather"`
	TodaysGoal            string        `db:"todays_goal" json:"todays_goal"`
	StudyGoal             string        `db:"study_goal" json:"study_goal"`
	TotalStudyTime        string        `db:"total_study_time" json:"total_study_time"`
	BreakTime             string        `db:"break_time" json:"break_time"`
	SleepHours            string        `db:"sleep_hours" json:"sleep_hours"`
	ReadingList           ReadingList   `db:"reading_list" json:"reading_list"`
	TodoList              TodoList      `db:"todo_list" json:"todo_list"`
	LessonPlans           LessonPlans   `db:"lesson_plans" json:"lesson_plans"`
	AssignmentsExams      string        `db:"assignments_exams" json:"assignments_exams"`
	SelfReflection        string        `db:"self_reflection" json:"self_reflection"`
	EvaluationScale       int           `db:"evaluation_scale" json:"evaluation_scale"`
	GuardianSignature     *string       `db:"guardian_signature" json:"guardian_signature,omitempty"`
	GuardianApprovedAt    *time.Time    `db:"guardian_approved_at" json:"guardian_approved_at,omitempty"`
	TeacherDeclineComment *string       `db:"teacher_decline_comment" json:"teacher_decline_comment,omitempty"`
	TeacherReviewedBy     *string       `db:"teacher_reviewed_by" json:"teacher_reviewed_by,omitempty"`
	TeacherReviewedAt     *time.Time    `db:"teacher_reviewed_at" json:"teacher_reviewed_at,omitempty"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at" json:"updated_at"`
}

// PlannerContentRequest carries the student-authored fields of a planner.
type PlannerContentRequest struct {
	Date             string      `json:"date" validate:"required,datetime=2006-01-02"`
	Weather          string      `json:"weather" validate:"max=32"`
	TodaysGoal       string      `json:"todays_goal" validate:"max=500"`
	StudyGoal        string      `json:"study_goal" validate:"max=500"`
	TotalStudyTime   string      `json:"total_study_time" validate:"max=32"`
	BreakTime        string      `json:"break_time" validate:"max=32"`
	SleepHours       string      `json:"sleep_hours" validate:"max=32"`
	ReadingList      ReadingList `json:"reading_list" validate:"dive"`
	TodoList         TodoList    `json:"todo_list" validate:"dive"`
	LessonPlans      LessonPlans `json:"lesson_plans" validate:"dive"`
	AssignmentsExams string      `json:"assignments_exams" validate:"max=1000"`
	SelfReflection   string      `json:"self_reflection" validate:"max=2000"`
	EvaluationScale  int         `json:"evaluation_scale" validate:"min=0,max=5"`
}

// GuardianApproveRequest carries the guardian's signature.
type GuardianApproveRequest struct {
	Signature string `json:"signature" validate:"required,min=2,max=100"`
}

// TeacherReviewRequest carries the teacher's verdict. A decline must come
// with a comment telling the student what to fix.
type TeacherReviewRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment" validate:"max=1000"`
}

// PlannerDetail joins the owning student for review screens.
type PlannerDetail struct {
	Planner
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentIndex *string `db:"student_index" json:"student_index,omitempty"`
}
