package models

import "time"

// AdminDashboardStats is the registrar/admin snapshot of engine state.
type AdminDashboardStats struct {
	ActiveEnrollments     int       `json:"active_enrollments"`
	PublishedResults      int       `json:"published_results"`
	DraftResults          int       `json:"draft_results"`
	PendingChangeRequests int       `json:"pending_change_requests"`
	IneligibleStudents    int       `json:"ineligible_students"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// StudentDashboardStats is the per-student snapshot.
type StudentDashboardStats struct {
	StudentID             string    `json:"student_id"`
	EnrolledSections      int       `json:"enrolled_sections"`
	PublishedResults      int       `json:"published_results"`
	PendingChangeRequests int       `json:"pending_change_requests"`
	GeneratedAt           time.Time `json:"generated_at"`
}
