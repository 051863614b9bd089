package models

import "time"

// Weekday names accepted in schedule slots.
var ScheduleDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// Schedule represents one period slot on a class's weekly grid.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	Period    int       `db:"period" json:"period"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleSlot joins subject and teacher names for grid rendering.
type ScheduleSlot struct {
	Schedule
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// WeeklySchedule groups slots by weekday for the student and teacher views.
type WeeklySchedule struct {
	ClassID  string                    `json:"class_id,omitempty"`
	Schedule map[string][]ScheduleSlot `json:"schedule"`
}

// ScheduleConflict describes an existing slot that collides with a
// requested one on the teacher dimension.
type ScheduleConflict struct {
	ScheduleID string `json:"schedule_id"`
	ClassID    string `json:"class_id"`
	DayOfWeek  string `json:"day_of_week"`
	Period     int    `json:"period"`
	TeacherID  string `json:"teacher_id"`
}

// ScheduleConflictError is returned when a grid update double-books a teacher.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
