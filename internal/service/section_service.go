package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/repository"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
)

type sectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindTerm(ctx context.Context, name string) (*models.Term, error)
	Create(ctx context.Context, section *models.Section) error
	CreateTerm(ctx context.Context, term *models.Term) error
}

// CreateSectionRequest describes a new course section.
type CreateSectionRequest struct {
	CourseCode  string `json:"course_code" validate:"required"`
	CourseTitle string `json:"course_title" validate:"required"`
	Term        string `json:"term" validate:"required"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name" validate:"required"`
	Capacity    int    `json:"capacity" validate:"omitempty,min=1"`
}

// CreateTermRequest registers an academic term.
type CreateTermRequest struct {
	Name      string `json:"name" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=open closed"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// defaultSectionCapacity applies when a section is created without one.
const defaultSectionCapacity = 30

// SectionService owns the catalog data the enrollment engine reads:
// sections with their seat capacity and terms with their open/closed gate.
type SectionService struct {
	repo      sectionStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionStore, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, validator: validate, logger: logger}
}

// Create registers a section, defaulting capacity when omitted. The term
// must exist first so every section carries a resolvable enrollment gate.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if _, err := s.repo.FindTerm(ctx, req.Term); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	capacity := req.Capacity
	if capacity == 0 {
		capacity = defaultSectionCapacity
	}
	section := &models.Section{
		CourseCode:  req.CourseCode,
		CourseTitle: req.CourseTitle,
		Term:        req.Term,
		TeacherName: req.TeacherName,
		Capacity:    capacity,
	}
	if req.TeacherID != "" {
		teacherID := req.TeacherID
		section.TeacherID = &teacherID
	}
	if err := s.repo.Create(ctx, section); err != nil {
		if errors.Is(err, repository.ErrSectionExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "section already exists for this course, term and teacher")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// Get returns a section by id.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// CreateTerm registers a term. New terms default to open.
func (s *SectionService) CreateTerm(ctx context.Context, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	startDate, _ := time.Parse("2006-01-02", req.StartDate)
	endDate, _ := time.Parse("2006-01-02", req.EndDate)
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	status := models.TermStatus(req.Status)
	if status == "" {
		status = models.TermStatusOpen
	}
	term := &models.Term{
		Name:      req.Name,
		Status:    status,
		StartDate: startDate,
		EndDate:   endDate,
	}
	if err := s.repo.CreateTerm(ctx, term); err != nil {
		if errors.Is(err, repository.ErrTermExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "term already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// GetTerm returns a term by name.
func (s *SectionService) GetTerm(ctx context.Context, name string) (*models.Term, error) {
	term, err := s.repo.FindTerm(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}
