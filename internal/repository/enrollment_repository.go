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

// Sentinel errors surfaced by the capacity-guarded insert. The service layer
// maps them onto the public error taxonomy.
var (
	// ErrSectionFull means the active enrollment count already equals the
	// section capacity.
	ErrSectionFull = errors.New("section capacity reached")
	// ErrActiveEnrollmentExists means the (student, section) pair already has
	// an enrolled row.
	ErrActiveEnrollmentExists = errors.New("active enrollment exists")
)

const pqUniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CreateWithCapacityCheck inserts a new enrollment, holding a row lock on the
// section so the count-then-insert sequence is a single atomic unit. Two
// simultaneous calls for the last seat serialize on the section row; the
// loser observes the winner's committed row and fails with ErrSectionFull.
func (r *EnrollmentRepository) CreateWithCapacityCheck(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusEnrolled

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var capacity int
	if err := tx.GetContext(ctx, &capacity,
		`SELECT capacity FROM sections WHERE id = $1 FOR UPDATE`, enrollment.SectionID); err != nil {
		return err
	}

	var active int
	if err := tx.GetContext(ctx, &active,
		`SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`,
		enrollment.SectionID, models.EnrollmentStatusEnrolled); err != nil {
		return fmt.Errorf("count active enrollments: %w", err)
	}
	if active >= capacity {
		return ErrSectionFull
	}

	const query = `INSERT INTO enrollments (id, student_id, section_id, status, enrolled_at, withdrawn_at)
        VALUES (:id, :student_id, :section_id, :status, :enrolled_at, :withdrawn_at)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrActiveEnrollmentExists
		}
		return fmt.Errorf("create enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, status, enrolled_at, withdrawn_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActive checks if an active enrollment exists for the pair.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Withdraw marks an enrolled row withdrawn. It reports how many rows changed
// so the service can keep the operation idempotent.
func (r *EnrollmentRepository) Withdraw(ctx context.Context, id string, withdrawnAt time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = $2, withdrawn_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusWithdrawn, withdrawnAt, models.EnrollmentStatusEnrolled)
	if err != nil {
		return false, fmt.Errorf("withdraw enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check withdraw rows: %w", err)
	}
	return rows > 0, nil
}

// CountActive returns the number of seats taken in a section.
func (r *EnrollmentRepository) CountActive(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// Roster returns the active enrollments for a section.
func (r *EnrollmentRepository) Roster(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, status, enrolled_at, withdrawn_at
        FROM enrollments WHERE section_id = $1 AND status = $2 ORDER BY enrolled_at`
	var roster []models.Enrollment
	if err := r.db.SelectContext(ctx, &roster, query, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return roster, nil
}

// CountAllActive returns the number of active enrollments across sections.
func (r *EnrollmentRepository) CountAllActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// CountActiveByStudent returns how many sections a student is enrolled in.
func (r *EnrollmentRepository) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count student enrollments: %w", err)
	}
	return count, nil
}
