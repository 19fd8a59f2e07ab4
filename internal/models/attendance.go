package models

import "time"

// AttendanceFact is one immutable presence record per (student, section, date).
// Corrections are out of scope; facts are only read in aggregate.
type AttendanceFact struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AttendanceSummary aggregates facts for a (student, section) pair.
type AttendanceSummary struct {
	Present int `db:"present" json:"present"`
	Total   int `db:"total" json:"total"`
}

// Rate returns the attendance ratio in percent, 0 when no facts exist.
func (s AttendanceSummary) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Present) / float64(s.Total) * 100
}

// EligibilityReport is the evaluator's answer for one (student, section) pair.
type EligibilityReport struct {
	StudentID  string  `json:"student_id"`
	SectionID  string  `json:"section_id"`
	Present    int     `json:"present"`
	Total      int     `json:"total"`
	Rate       float64 `json:"rate"`
	Threshold  float64 `json:"threshold"`
	Ineligible bool    `json:"ineligible"`
}
