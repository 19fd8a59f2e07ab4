package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Withdrawn rows are kept for history and
// never count toward section capacity.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusWithdrawn EnrollmentStatus = "withdrawn"
)

// Enrollment captures a student's membership in a section.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	SectionID   string           `db:"section_id" json:"section_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	WithdrawnAt *time.Time       `db:"withdrawn_at" json:"withdrawn_at,omitempty"`
}

// Active reports whether the enrollment occupies a seat.
func (e Enrollment) Active() bool {
	return e.Status == EnrollmentStatusEnrolled
}
