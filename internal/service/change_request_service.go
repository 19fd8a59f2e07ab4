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

type changeRequestStore interface {
	CreatePending(ctx context.Context, req *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	Resolve(ctx context.Context, params repository.ResolveParams) (*models.ChangeRequest, *models.Result, error)
}

type resultReader interface {
	GetByID(ctx context.Context, id string) (*models.Result, error)
}

// ProposeChangeRequest opens a correction request against a published result.
type ProposeChangeRequest struct {
	ResultID      string `json:"result_id" validate:"required"`
	ProposedGrade string `json:"proposed_grade" validate:"required"`
	RequestedBy   string `json:"requested_by" validate:"required"`
	Reason        string `json:"reason" validate:"required"`
}

// ResolveChangeRequest approves or rejects a pending request.
type ResolveChangeRequest struct {
	Approve    bool   `json:"approve"`
	ResolvedBy string `json:"resolved_by" validate:"required"`
}

// ChangeRequestService runs the correction workflow for published results.
// A result can carry at most one pending request at a time, and approval is
// the only path that rewrites a published grade.
type ChangeRequestService struct {
	repo      changeRequestStore
	results   resultReader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChangeRequestService constructs ChangeRequestService.
func NewChangeRequestService(repo changeRequestStore, results resultReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ChangeRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeRequestService{repo: repo, results: results, audit: audit, validator: validate, logger: logger}
}

// Propose opens a pending change request. The target result must already be
// published; drafts are corrected directly through the draft update path.
func (s *ChangeRequestService) Propose(ctx context.Context, req ProposeChangeRequest) (*models.ChangeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}

	result, err := s.results.GetByID(ctx, req.ResultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if !result.Published() {
		return nil, appErrors.ErrResultNotPublished
	}

	request := &models.ChangeRequest{
		ResultID:      req.ResultID,
		ProposedGrade: req.ProposedGrade,
		RequestedBy:   req.RequestedBy,
		Reason:        req.Reason,
	}
	if err := s.repo.CreatePending(ctx, request); err != nil {
		if errors.Is(err, repository.ErrPendingRequestExists) {
			return nil, appErrors.ErrDuplicatePendingRequest
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}

	s.emitAudit(ctx, req.RequestedBy, models.AuditActionChangeRequestCreate, request)
	return request, nil
}

// Get returns a single change request.
func (s *ChangeRequestService) Get(ctx context.Context, id string) (*models.ChangeRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	return request, nil
}

// List returns change requests matching the filter.
func (s *ChangeRequestService) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	return requests, nil
}

// Resolve closes a pending request. Approval applies the proposed grade to
// the published result in the same transaction that flips the request status;
// rejection leaves the result untouched. A request can only be resolved once.
func (s *ChangeRequestService) Resolve(ctx context.Context, id string, req ResolveChangeRequest) (*models.ResolutionOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}

	request, result, err := s.repo.Resolve(ctx, repository.ResolveParams{
		ID:         id,
		Approve:    req.Approve,
		ResolvedBy: req.ResolvedBy,
		ResolvedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.resolvedOrNotFound(ctx, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve change request")
	}

	s.emitAudit(ctx, req.ResolvedBy, models.AuditActionChangeRequestResolve, request)
	return &models.ResolutionOutcome{Request: *request, Result: *result}, nil
}

// resolvedOrNotFound distinguishes a missing request from one that lost the
// race to another resolver.
func (s *ChangeRequestService) resolvedOrNotFound(ctx context.Context, id string) error {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if request.Resolved() {
		return appErrors.ErrAlreadyResolved
	}
	return appErrors.Clone(appErrors.ErrConflict, "change request state changed concurrently")
}

func (s *ChangeRequestService) emitAudit(ctx context.Context, actorID, action string, request *models.ChangeRequest) {
	if s.audit == nil || request == nil {
		return
	}
	values, _ := json.Marshal(request)
	log := &models.AuditLog{
		Action:     action,
		Resource:   "change_request",
		ResourceID: &request.ID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "change-request-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
