package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/repository"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
)

type enrollmentStore interface {
	CreateWithCapacityCheck(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error)
	Withdraw(ctx context.Context, id string, withdrawnAt time.Time) (bool, error)
	Roster(ctx context.Context, sectionID string) ([]models.Enrollment, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindTerm(ctx context.Context, name string) (*models.Term, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EnrollRequest describes an admission request.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// EnrollmentService admits students into sections under the capacity ceiling.
type EnrollmentService struct {
	repo            enrollmentStore
	sections        sectionReader
	audit           auditLogger
	validator       *validator.Validate
	logger          *zap.Logger
	capacityRetries int
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, sections sectionReader, audit auditLogger, capacityRetries int, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacityRetries < 0 {
		capacityRetries = 0
	}
	return &EnrollmentService{
		repo:            repo,
		sections:        sections,
		audit:           audit,
		validator:       validate,
		logger:          logger,
		capacityRetries: capacityRetries,
	}
}

// Enroll admits a student into a section. The seat count check and the insert
// commit as one atomic unit in the repository; a contender that loses the last
// seat re-checks once before surfacing CAPACITY_EXCEEDED.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest, actorID string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	term, err := s.sections.FindTerm(ctx, section.Term)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if !term.Open() {
		return nil, appErrors.ErrSectionClosed
	}

	exists, err := s.repo.ExistsActive(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.ErrDuplicateEnrollment
	}

	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		SectionID:  req.SectionID,
		EnrolledAt: time.Now().UTC(),
	}
	for attempt := 0; ; attempt++ {
		err = s.repo.CreateWithCapacityCheck(ctx, enrollment)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrSectionFull) && attempt < s.capacityRetries {
			continue
		}
		switch {
		case errors.Is(err, repository.ErrSectionFull):
			return nil, appErrors.ErrCapacityExceeded
		case errors.Is(err, repository.ErrActiveEnrollmentExists):
			return nil, appErrors.ErrDuplicateEnrollment
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
	}

	s.emitAudit(ctx, actorID, models.AuditActionEnroll, enrollment.ID, enrollment)
	return enrollment, nil
}

// Withdraw releases a seat for future admissions. Calling it on an already
// withdrawn enrollment is a no-op, not an error.
func (s *EnrollmentService) Withdraw(ctx context.Context, id, actorID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Active() {
		return enrollment, nil
	}

	withdrawnAt := time.Now().UTC()
	changed, err := s.repo.Withdraw(ctx, id, withdrawnAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}
	if changed {
		enrollment.Status = models.EnrollmentStatusWithdrawn
		enrollment.WithdrawnAt = &withdrawnAt
		s.emitAudit(ctx, actorID, models.AuditActionWithdraw, enrollment.ID, enrollment)
	}
	return enrollment, nil
}

// Roster returns the active enrollments for a section.
func (s *EnrollmentService) Roster(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	roster, err := s.repo.Roster(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

func (s *EnrollmentService) emitAudit(ctx context.Context, actorID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(payload)
	log := &models.AuditLog{
		Action:     action,
		Resource:   "enrollment",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "enrollment-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
