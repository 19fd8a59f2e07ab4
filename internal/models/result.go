package models

import "time"

// ResultState is the publication state of a result record. Transitions only
// move forward: draft → published.
type ResultState string

const (
	ResultStateDraft     ResultState = "draft"
	ResultStatePublished ResultState = "published"
)

// Result is the authoritative grade record for one (student, section) pair.
// Once published it is immutable except through an approved change request.
type Result struct {
	ID          string      `db:"id" json:"id"`
	StudentID   string      `db:"student_id" json:"student_id"`
	SectionID   string      `db:"section_id" json:"section_id"`
	Grade       *string     `db:"grade" json:"grade,omitempty"`
	State       ResultState `db:"state" json:"state"`
	PublishedAt *time.Time  `db:"published_at" json:"published_at,omitempty"`
	PublishedBy string      `db:"published_by" json:"published_by,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Published reports whether the record is frozen against direct writes.
func (r Result) Published() bool {
	return r.State == ResultStatePublished
}
