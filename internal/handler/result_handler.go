package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/service"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
	"github.com/noah-isme/sims-core-api/pkg/response"
)

type resultService interface {
	CreateDraft(ctx context.Context, req service.CreateDraftRequest) (*models.Result, error)
	Get(ctx context.Context, id string) (*models.Result, error)
	UpdateDraft(ctx context.Context, id string, req service.UpdateDraftRequest) (*models.Result, error)
	Publish(ctx context.Context, id string, req service.PublishRequest) (*models.Result, error)
}

// ResultHandler exposes the result lifecycle endpoints.
type ResultHandler struct {
	results resultService
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results resultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Create godoc
// @Summary Create a draft result
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.CreateDraftRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Create(c *gin.Context) {
	var req service.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.results.CreateDraft(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get a result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Update the grade on a draft result
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body service.UpdateDraftRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [patch]
func (h *ResultHandler) Update(c *gin.Context) {
	var req service.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.results.UpdateDraft(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Publish godoc
// @Summary Publish a draft result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/publish [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.results.Publish(c.Request.Context(), c.Param("id"), service.PublishRequest{PublisherID: claims.UserID})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
