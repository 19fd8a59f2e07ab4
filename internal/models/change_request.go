package models

import "time"

// ChangeRequestStatus captures workflow states for grade change requests.
type ChangeRequestStatus string

const (
	ChangeRequestStatusPending  ChangeRequestStatus = "pending"
	ChangeRequestStatusApproved ChangeRequestStatus = "approved"
	ChangeRequestStatusRejected ChangeRequestStatus = "rejected"
)

// ChangeRequest proposes a new grade for a published result. It is created
// pending and resolved exactly once; approved and rejected are terminal.
type ChangeRequest struct {
	ID            string              `db:"id" json:"id"`
	ResultID      string              `db:"result_id" json:"result_id"`
	ProposedGrade string              `db:"proposed_grade" json:"proposed_grade"`
	RequestedBy   string              `db:"requested_by" json:"requested_by"`
	Reason        string              `db:"reason" json:"reason"`
	Status        ChangeRequestStatus `db:"status" json:"status"`
	ResolvedBy    *string             `db:"resolved_by" json:"resolved_by,omitempty"`
	RequestedAt   time.Time           `db:"requested_at" json:"requested_at"`
	ResolvedAt    *time.Time          `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Resolved reports whether the request reached a terminal state.
func (c ChangeRequest) Resolved() bool {
	return c.Status != ChangeRequestStatusPending
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	Status      []ChangeRequestStatus
	ResultID    string
	RequestedBy string
	Limit       int
	Offset      int
}

// ResolutionOutcome pairs the updated result with its resolved request.
type ResolutionOutcome struct {
	Result  Result        `json:"result"`
	Request ChangeRequest `json:"request"`
}
