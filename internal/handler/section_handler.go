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

type sectionService interface {
	Create(ctx context.Context, req service.CreateSectionRequest) (*models.Section, error)
	Get(ctx context.Context, id string) (*models.Section, error)
	CreateTerm(ctx context.Context, req service.CreateTermRequest) (*models.Term, error)
	GetTerm(ctx context.Context, name string) (*models.Term, error)
}

// SectionHandler exposes section and term catalog endpoints.
type SectionHandler struct {
	sections sectionService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections sectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// Create godoc
// @Summary Create a course section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Get godoc
// @Summary Get a section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// CreateTerm godoc
// @Summary Register an academic term
// @Tags Terms
// @Accept json
// @Produce json
// @Param payload body service.CreateTermRequest true "Term payload"
// @Success 201 {object} response.Envelope
// @Router /terms [post]
func (h *SectionHandler) CreateTerm(c *gin.Context) {
	var req service.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	term, err := h.sections.CreateTerm(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, term)
}

// GetTerm godoc
// @Summary Get a term
// @Tags Terms
// @Produce json
// @Param name path string true "Term name"
// @Success 200 {object} response.Envelope
// @Router /terms/{name} [get]
func (h *SectionHandler) GetTerm(c *gin.Context) {
	term, err := h.sections.GetTerm(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}
