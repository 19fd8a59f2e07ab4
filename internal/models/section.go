package models

import "time"

// TermStatus controls whether a term accepts new enrollments.
type TermStatus string

const (
	TermStatusOpen   TermStatus = "open"
	TermStatusClosed TermStatus = "closed"
)

// Term represents an academic term/semester.
type Term struct {
	Name      string     `db:"name" json:"name"`
	Status    TermStatus `db:"status" json:"status"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   time.Time  `db:"end_date" json:"end_date"`
}

// Open reports whether the term accepts enrollment.
func (t Term) Open() bool {
	return t.Status == TermStatusOpen
}

// Section is one offering of a course in a term with a seat capacity.
type Section struct {
	ID          string    `db:"id" json:"id"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	Term        string    `db:"term" json:"term"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	TeacherName string    `db:"teacher_name" json:"teacher_name"`
	Capacity    int       `db:"capacity" json:"capacity"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
