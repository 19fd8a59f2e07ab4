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

type resultStore interface {
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id string) (*models.Result, error)
	UpdateDraftGrade(ctx context.Context, id, grade string) error
	Publish(ctx context.Context, id, publisher string, publishedAt time.Time) error
}

// CreateDraftRequest describes a new draft result.
type CreateDraftRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	Grade     string `json:"grade"`
}

// UpdateDraftRequest carries a grade for a draft record.
type UpdateDraftRequest struct {
	Grade string `json:"grade" validate:"required"`
}

// PublishRequest freezes a draft record.
type PublishRequest struct {
	PublisherID string `json:"publisher_id" validate:"required"`
}

// ResultService owns the draft → published lifecycle. Published records are
// immutable to direct writes; the only legal path to changing them is the
// change-request workflow.
type ResultService struct {
	repo      resultStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(repo resultStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// CreateDraft creates the single result record for a (student, section) pair.
func (s *ResultService) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	result := &models.Result{
		StudentID: req.StudentID,
		SectionID: req.SectionID,
	}
	if req.Grade != "" {
		grade := req.Grade
		result.Grade = &grade
	}
	if err := s.repo.Create(ctx, result); err != nil {
		if errors.Is(err, repository.ErrResultExists) {
			return nil, appErrors.ErrDuplicateResult
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create result")
	}
	return result, nil
}

// Get returns a result by id.
func (s *ResultService) Get(ctx context.Context, id string) (*models.Result, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	return result, nil
}

// UpdateDraft changes the grade on a draft record. This is the enforcement
// point against silent edits: the conditional update loses to any committed
// publish, so a frozen record always answers ALREADY_PUBLISHED here.
func (s *ResultService) UpdateDraft(ctx context.Context, id string, req UpdateDraftRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := s.repo.UpdateDraftGrade(ctx, id, req.Grade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conflictOrNotFound(ctx, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return s.Get(ctx, id)
}

// Publish freezes a draft and stamps publisher identity and time. Publishing
// twice fails with ALREADY_PUBLISHED regardless of ordering races.
func (s *ResultService) Publish(ctx context.Context, id string, req PublishRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish payload")
	}
	publishedAt := time.Now().UTC()
	if err := s.repo.Publish(ctx, id, req.PublisherID, publishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conflictOrNotFound(ctx, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish result")
	}

	result, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, req.PublisherID, models.AuditActionResultPublish, result)
	return result, nil
}

// conflictOrNotFound distinguishes a missing record from a frozen one after a
// conditional update matched zero rows.
func (s *ResultService) conflictOrNotFound(ctx context.Context, id string) error {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if result.Published() {
		return appErrors.ErrAlreadyPublished
	}
	return appErrors.Clone(appErrors.ErrConflict, "result state changed concurrently")
}

func (s *ResultService) emitAudit(ctx context.Context, actorID, action string, result *models.Result) {
	if s.audit == nil || result == nil {
		return
	}
	values, _ := json.Marshal(result)
	log := &models.AuditLog{
		Action:     action,
		Resource:   "result",
		ResourceID: &result.ID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "result-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
