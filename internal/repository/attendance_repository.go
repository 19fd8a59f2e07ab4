package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sims-core-api/internal/models"
)

// ErrDuplicateFact means a fact already exists for (student, section, date).
// Facts are immutable, so a second write is rejected rather than merged.
var ErrDuplicateFact = errors.New("attendance fact exists")

// AttendanceRepository handles persistence of attendance facts.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create persists a new attendance fact.
func (r *AttendanceRepository) Create(ctx context.Context, fact *models.AttendanceFact) error {
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_facts (id, student_id, section_id, date, present, reason, created_at)
        VALUES (:id, :student_id, :section_id, :date, :present, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fact); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateFact
		}
		return fmt.Errorf("create attendance fact: %w", err)
	}
	return nil
}

// PairSummary aggregates present/total counts for a (student, section) pair
// in a single query.
func (r *AttendanceRepository) PairSummary(ctx context.Context, studentID, sectionID string) (*models.AttendanceSummary, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE present) AS present, COUNT(*) AS total
        FROM attendance_facts WHERE student_id = $1 AND section_id = $2`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID, sectionID); err != nil {
		return nil, fmt.Errorf("attendance pair summary: %w", err)
	}
	return &summary, nil
}

// IneligibleCount counts students whose overall attendance rate is below the
// threshold (percent). Students without facts are excluded: no attendance
// taken yet means eligible by default.
func (r *AttendanceRepository) IneligibleCount(ctx context.Context, threshold float64) (int, error) {
	const query = `SELECT COUNT(*) FROM (
        SELECT student_id
        FROM attendance_facts
        GROUP BY student_id
        HAVING (COUNT(*) FILTER (WHERE present))::float * 100 / COUNT(*) < $1
    ) low`
	var count int
	if err := r.db.GetContext(ctx, &count, query, threshold); err != nil {
		return 0, fmt.Errorf("count ineligible students: %w", err)
	}
	return count, nil
}
