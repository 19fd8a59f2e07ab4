package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sims-core-api/internal/models"
)

// ErrResultExists means a result row already exists for (student, section).
var ErrResultExists = errors.New("result exists for pair")

// ResultRepository manages the authoritative grade records.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create inserts a new draft result. The (student, section) pair is unique.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now
	result.State = models.ResultStateDraft

	const query = `INSERT INTO results (id, student_id, section_id, grade, state, published_at, published_by, created_at, updated_at)
        VALUES (:id, :student_id, :section_id, :grade, :state, :published_at, :published_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrResultExists
		}
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// GetByID fetches a result by identifier.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*models.Result, error) {
	const query = `SELECT id, student_id, section_id, grade, state, published_at, published_by, created_at, updated_at
        FROM results WHERE id = $1`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateDraftGrade sets the grade on a draft record. The state predicate makes
// the write mutually exclusive with Publish: once a publish commits, this
// update matches zero rows and returns sql.ErrNoRows.
func (r *ResultRepository) UpdateDraftGrade(ctx context.Context, id, grade string) error {
	const query = `UPDATE results SET grade = $2, updated_at = $3 WHERE id = $1 AND state = $4`
	result, err := r.db.ExecContext(ctx, query, id, grade, time.Now().UTC(), models.ResultStateDraft)
	if err != nil {
		return fmt.Errorf("update draft grade: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check draft update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Publish freezes a draft record, stamping publisher and timestamp. A record
// already published matches zero rows and returns sql.ErrNoRows.
func (r *ResultRepository) Publish(ctx context.Context, id, publisher string, publishedAt time.Time) error {
	const query = `UPDATE results SET state = $2, published_at = $3, published_by = $4, updated_at = $3
        WHERE id = $1 AND state = $5`
	result, err := r.db.ExecContext(ctx, query, id, models.ResultStatePublished, publishedAt, publisher, models.ResultStateDraft)
	if err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check publish rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByState returns the number of results in the given state.
func (r *ResultRepository) CountByState(ctx context.Context, state models.ResultState) (int, error) {
	const query = `SELECT COUNT(*) FROM results WHERE state = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, state); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return count, nil
}

// CountPublishedByStudent returns the published result count for a student.
func (r *ResultRepository) CountPublishedByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM results WHERE student_id = $1 AND state = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.ResultStatePublished); err != nil {
		return 0, fmt.Errorf("count student results: %w", err)
	}
	return count, nil
}
