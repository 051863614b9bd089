package models

import (
	"database/sql/driver"
	"time"
)

// PerformanceRating is a teacher's day verdict on a student.
type PerformanceRating string

const (
	PerformanceGood             PerformanceRating = "Good"
	PerformanceAverage          PerformanceRating = "Average"
	PerformanceNeedsImprovement PerformanceRating = "Needs Improvement"
)

// Valid reports whether the rating is one of the three allowed marks.
func (r PerformanceRating) Valid() bool {
	switch r {
	case PerformanceGood, PerformanceAverage, PerformanceNeedsImprovement:
		return true
	default:
		return false
	}
}

// PerformanceEntry is one teacher rating of one student for one day and
// subject.
type PerformanceEntry struct {
	ID        string            `db:"id" json:"id"`
	StudentID string            `db:"student_id" json:"student_id"`
	ClassID   string            `db:"class_id" json:"class_id"`
	SubjectID string            `db:"subject_id" json:"subject_id"`
	TeacherID string            `db:"teacher_id" json:"teacher_id"`
	Date      time.Time         `db:"date" json:"date"`
	Rating    PerformanceRating `db:"rating" json:"rating"`
	Comment   string            `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// PerformanceDetail is an entry joined with the display names the history
// screens show.
type PerformanceDetail struct {
	PerformanceEntry
	StudentName string `db:"student_name" json:"student_name"`
	ClassName   string `db:"class_name" json:"class_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// ExamSubjectResult is one subject line on an exam report.
type ExamSubjectResult struct {
	SubjectName string `json:"subject_name"`
	Marks       int    `json:"marks"`
	Grade       string `json:"grade"`
	Remarks     string `json:"remarks,omitempty"`
}

// ExamSubjectResults is stored as a JSONB column.
type ExamSubjectResults []ExamSubjectResult

func (r ExamSubjectResults) Value() (driver.Value, error) { return jsonValue(r) }
func (r *ExamSubjectResults) Scan(src interface{}) error  { return jsonScan(src, r) }

// ExamResult is a student's report for one exam round.
type ExamResult struct {
	ID        string             `db:"id" json:"id"`
	StudentID string             `db:"student_id" json:"student_id"`
	ExamType  string             `db:"exam_type" json:"exam_type"`
	Results   ExamSubjectResults `db:"results" json:"results"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}
