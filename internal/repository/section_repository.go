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

// ErrSectionExists indicates a duplicate (course, term, teacher) tuple.
var ErrSectionExists = errors.New("section already exists")

// ErrTermExists indicates the term name is already registered.
var ErrTermExists = errors.New("term already exists")

// SectionRepository handles persistence for sections and terms.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_code, course_title, term, teacher_id, teacher_name, capacity, created_at
        FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindTerm returns a term by its name.
func (r *SectionRepository) FindTerm(ctx context.Context, name string) (*models.Term, error) {
	const query = `SELECT name, status, start_date, end_date FROM terms WHERE name = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, name); err != nil {
		return nil, err
	}
	return &term, nil
}

// Create persists a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sections (id, course_code, course_title, term, teacher_id, teacher_name, capacity, created_at)
        VALUES (:id, :course_code, :course_title, :term, :teacher_id, :teacher_name, :capacity, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrSectionExists
		}
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// CreateTerm persists a new term.
func (r *SectionRepository) CreateTerm(ctx context.Context, term *models.Term) error {
	const query = `INSERT INTO terms (name, status, start_date, end_date)
        VALUES (:name, :status, :start_date, :end_date)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrTermExists
		}
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}
