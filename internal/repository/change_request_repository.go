package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sims-core-api/internal/models"
)

// ErrPendingRequestExists means the target result already has an open
// proposal. The partial unique index backs the same invariant under races.
var ErrPendingRequestExists = errors.New("pending change request exists")

// ChangeRequestRepository persists the grade change workflow.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

// CreatePending inserts a new pending request unless one is already open for
// the result. The guarded insert and the partial unique index together make
// the at-most-one-pending invariant hold under concurrent proposals.
func (r *ChangeRequestRepository) CreatePending(ctx context.Context, request *models.ChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}
	request.Status = models.ChangeRequestStatusPending

	const query = `INSERT INTO change_requests (id, result_id, proposed_grade, requested_by, reason, status, requested_at)
        SELECT $1, $2, $3, $4, $5, $6, $7
        WHERE NOT EXISTS (
            SELECT 1 FROM change_requests WHERE result_id = $2 AND status = $6
        )`
	result, err := r.db.ExecContext(ctx, query,
		request.ID, request.ResultID, request.ProposedGrade, request.RequestedBy,
		request.Reason, models.ChangeRequestStatusPending, request.RequestedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrPendingRequestExists
		}
		return fmt.Errorf("create change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check change request rows: %w", err)
	}
	if rows == 0 {
		return ErrPendingRequestExists
	}
	return nil
}

// GetByID fetches a change request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	const query = `SELECT id, result_id, proposed_grade, requested_by, reason, status, resolved_by, requested_at, resolved_at
        FROM change_requests WHERE id = $1`
	var request models.ChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns change requests matching the filter, latest first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT id, result_id, proposed_grade, requested_by, reason, status, resolved_by, requested_at, resolved_at
        FROM change_requests`)

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ResultID != "" {
		args = append(args, filter.ResultID)
		conditions = append(conditions, fmt.Sprintf("result_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// ResolveParams groups the columns written by a review decision.
type ResolveParams struct {
	ID         string
	Approve    bool
	ResolvedBy string
	ResolvedAt time.Time
}

// Resolve finalizes a pending request. On approval the result's grade and the
// request's status commit in one transaction; a crash between the two writes
// rolls both back. A request that is no longer pending matches zero rows and
// returns sql.ErrNoRows.
func (r *ChangeRequestRepository) Resolve(ctx context.Context, params ResolveParams) (*models.ChangeRequest, *models.Result, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin resolve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	status := models.ChangeRequestStatusRejected
	if params.Approve {
		status = models.ChangeRequestStatusApproved
	}

	const updateRequest = `UPDATE change_requests
        SET status = $2, resolved_by = $3, resolved_at = $4
        WHERE id = $1 AND status = $5
        RETURNING id, result_id, proposed_grade, requested_by, reason, status, resolved_by, requested_at, resolved_at`
	var request models.ChangeRequest
	if err := tx.GetContext(ctx, &request, updateRequest,
		params.ID, status, params.ResolvedBy, params.ResolvedAt, models.ChangeRequestStatusPending); err != nil {
		return nil, nil, err
	}

	if params.Approve {
		const applyGrade = `UPDATE results SET grade = $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, applyGrade, request.ResultID, request.ProposedGrade, params.ResolvedAt); err != nil {
			return nil, nil, fmt.Errorf("apply proposed grade: %w", err)
		}
	}

	const selectResult = `SELECT id, student_id, section_id, grade, state, published_at, published_by, created_at, updated_at
        FROM results WHERE id = $1`
	var result models.Result
	if err := tx.GetContext(ctx, &result, selectResult, request.ResultID); err != nil {
		return nil, nil, fmt.Errorf("load resolved result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit resolve: %w", err)
	}
	return &request, &result, nil
}

// CountPending returns the number of open change requests.
func (r *ChangeRequestRepository) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM change_requests WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.ChangeRequestStatusPending); err != nil {
		return 0, fmt.Errorf("count pending change requests: %w", err)
	}
	return count, nil
}

// CountPendingByStudent returns open requests targeting a student's results.
func (r *ChangeRequestRepository) CountPendingByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM change_requests cr
        JOIN results rs ON rs.id = cr.result_id
        WHERE rs.student_id = $1 AND cr.status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.ChangeRequestStatusPending); err != nil {
		return 0, fmt.Errorf("count student change requests: %w", err)
	}
	return count, nil
}
