package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/service"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
	"github.com/noah-isme/sims-core-api/pkg/response"
)

type changeRequestService interface {
	Propose(ctx context.Context, req service.ProposeChangeRequest) (*models.ChangeRequest, error)
	Get(ctx context.Context, id string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	Resolve(ctx context.Context, id string, req service.ResolveChangeRequest) (*models.ResolutionOutcome, error)
}

// ChangeRequestHandler exposes the grade correction workflow.
type ChangeRequestHandler struct {
	changeRequests changeRequestService
}

// NewChangeRequestHandler constructs ChangeRequestHandler.
func NewChangeRequestHandler(changeRequests changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{changeRequests: changeRequests}
}

// Create godoc
// @Summary Propose a grade change for a published result
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param payload body service.ProposeChangeRequest true "Change request payload"
// @Success 201 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req service.ProposeChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req.RequestedBy = claims.UserID
	request, err := h.changeRequests.Propose(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List change requests
// @Tags ChangeRequests
// @Produce json
// @Param status query string false "Filter by status"
// @Param resultId query string false "Filter by result"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	var filter models.ChangeRequestFilter
	if status := c.Query("status"); status != "" {
		filter.Status = []models.ChangeRequestStatus{models.ChangeRequestStatus(status)}
	}
	filter.ResultID = c.Query("resultId")
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	// Faculty review only their own submissions.
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.Role == models.RoleFaculty {
		filter.RequestedBy = claims.UserID
	}

	requests, err := h.changeRequests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get a change request
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	request, err := h.changeRequests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.Role == models.RoleFaculty && request.RequestedBy != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Resolve godoc
// @Summary Approve or reject a pending change request
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path string true "Change request ID"
// @Param payload body service.ResolveChangeRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id}/resolve [post]
func (h *ChangeRequestHandler) Resolve(c *gin.Context) {
	var req service.ResolveChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req.ResolvedBy = claims.UserID
	outcome, err := h.changeRequests.Resolve(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
